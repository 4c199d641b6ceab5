// Package reports declares the report catalog: the static dataset,
// rendering and publication parameters of every scheduled report,
// overridable through configuration.
package reports

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/vigie-covid/vigie/etl"
	"github.com/vigie-covid/vigie/external/messenger"
	"github.com/vigie-covid/vigie/scheduler"
	"github.com/vigie-covid/vigie/schema"
)

// All returns the catalog in scheduling order.
func All() []scheduler.Config {
	return []scheduler.Config{
		Vaccination(),
		Positivity(),
		Hospitalisation(),
	}
}

// Vaccination tracks vaccine coverage rates by age bucket over three
// nested zones, published as one animated sequence.
func Vaccination() scheduler.Config {
	viper.SetDefault("reports.vaccination.locator.fra", "https://www.data.gouv.fr/fr/datasets/r/54dd5f8d-1e2e-4ccb-8fb8-eac68245befd")
	viper.SetDefault("reports.vaccination.locator.reg", "https://www.data.gouv.fr/fr/datasets/r/c3ccc72a-a945-494b-b98d-09f48aa25337")
	viper.SetDefault("reports.vaccination.locator.dep", "https://www.data.gouv.fr/fr/datasets/r/83cbbdb9-23cb-455e-8231-69fc25d58111")
	viper.SetDefault("reports.vaccination.lag_days", 1)
	viper.SetDefault("reports.vaccination.minutes", []int{20, 50})

	return scheduler.Config{
		Name: "vaccination",
		Descriptors: []schema.DatasetDescriptor{
			{
				Key:         "france",
				Locator:     viper.GetString("reports.vaccination.locator.fra"),
				ZoneColumn:  "fra",
				ZoneValues:  []string{"FR"},
				Color:       "#70E6E4",
				Preposition: "en",
				DisplayName: "France",
				Reference:   true,
			},
			{
				Key:         "idf",
				Locator:     viper.GetString("reports.vaccination.locator.reg"),
				ZoneColumn:  "reg",
				ZoneValues:  []string{"11"},
				Color:       "#c7faff",
				Preposition: "en",
				DisplayName: "Île-de-France",
			},
			{
				Key:         "hauts-de-seine",
				Locator:     viper.GetString("reports.vaccination.locator.dep"),
				ZoneColumn:  "dep",
				ZoneValues:  []string{"92"},
				Color:       "#E3FFFF",
				Preposition: "dans les",
				DisplayName: "Hauts-de-Seine",
			},
		},
		Render: schema.RenderConfig{
			Name:      "Vaccination par âge",
			ShortName: "Vaccin_Age",
			Metrics: []schema.MetricSpec{
				{Column: "couv_dose1", Label: "1ère dose", Color: "0000FF", Width: 1},
				{Column: "couv_complet", Label: "Schéma complet", Color: "008000", DashArray: []float64{5, 4}, Width: 1},
				{Column: "couv_rappel", Label: "Dose de rappel", Color: "006400", DashArray: []float64{5, 4}, Width: 1},
			},
			GridCols: 5,
			Scale:    schema.PercentScale,
			Percent:  true,
			Footnote: "couv_* : couverture vaccinale, en % de la population de la tranche d'âge",
			OutDir:   outDir("vaccination"),
		},
		AgeColumn:  "clage_vacsi",
		WindowDays: 60,
		LagDays:    viper.GetInt("reports.vaccination.lag_days"),
		Active:     activeWindow("reports.vaccination.minutes"),
		GIF: &scheduler.GIFSpec{
			Path:          filepath.Join(outDir("vaccination"), "Vaccination.gif"),
			FrameDuration: 10 * time.Second,
		},
		Slot: slot("reports.vaccination.slot"),
		Message: scheduler.MessageSpec{
			Title:       "Vaccination par âge : France · IDF · 92",
			Description: "actualisé vers 20h-23h\n(du lundi au vendredi)",
			URL:         "https://solidarites-sante.gouv.fr/grands-dossiers/vaccin-covid-19/",
			Color:       0x70E6E4,
		},
		EphemeralChannel: viper.GetString("reports.ephemeral_channel"),
		Tick:             tick(),
		Cooldown:         6 * time.Hour,
		InterZonePause:   30 * time.Second,
		PublishPause:     30 * time.Minute,
	}
}

// Positivity tracks daily tested and positive persons by age bucket,
// count-scaled, over the same three zones.
func Positivity() scheduler.Config {
	viper.SetDefault("reports.positivity.locator.fra", "https://www.data.gouv.fr/fr/datasets/r/dd0de5d9-b5a5-4503-930a-7b08dc0adc7c")
	viper.SetDefault("reports.positivity.locator.reg", "https://www.data.gouv.fr/fr/datasets/r/001aca18-df6a-45c8-89e6-f82d689e6c01")
	viper.SetDefault("reports.positivity.locator.dep", "https://www.data.gouv.fr/fr/datasets/r/406c6a23-e283-4300-9484-54e78c8ae675")
	viper.SetDefault("reports.positivity.lag_days", 3)
	viper.SetDefault("reports.positivity.minutes", []int{22, 52})

	return scheduler.Config{
		Name: "positivity",
		Descriptors: []schema.DatasetDescriptor{
			{
				Key:         "france",
				Locator:     viper.GetString("reports.positivity.locator.fra"),
				ZoneColumn:  "fra",
				ZoneValues:  []string{"FR"},
				Color:       "#feb8ff",
				Preposition: "en",
				DisplayName: "France",
				Reference:   true,
			},
			{
				Key:         "idf",
				Locator:     viper.GetString("reports.positivity.locator.reg"),
				ZoneColumn:  "reg",
				ZoneValues:  []string{"11"},
				Color:       "#fed6ff",
				Preposition: "en",
				DisplayName: "Île-de-France",
			},
			{
				Key:         "hauts-de-seine",
				Locator:     viper.GetString("reports.positivity.locator.dep"),
				ZoneColumn:  "dep",
				ZoneValues:  []string{"92"},
				Color:       "#fdf2ff",
				Preposition: "dans les",
				DisplayName: "Hauts-de-Seine",
			},
		},
		Render: schema.RenderConfig{
			Name:      "Personnes testées et positives par âge",
			ShortName: "Positivite_Age",
			Metrics: []schema.MetricSpec{
				{Column: "P", Label: "Personnes positives", Color: "FF0000", Width: 1.5},
				{Column: "T", Label: "Personnes testées", Color: "696969", DashArray: []float64{5, 4}, Width: 1},
			},
			GridCols: 5,
			Scale:    schema.ThirdOfMaxScale,
			Footnote: "P : testées positives · T : testées, par jour de prélèvement",
			OutDir:   outDir("positivity"),
		},
		AgeColumn:  "cl_age90",
		WindowDays: 60,
		LagDays:    viper.GetInt("reports.positivity.lag_days"),
		Active:     activeWindow("reports.positivity.minutes"),
		GIF: &scheduler.GIFSpec{
			Path:          filepath.Join(outDir("positivity"), "Positivite.gif"),
			FrameDuration: 10 * time.Second,
		},
		Slot: slot("reports.positivity.slot"),
		Message: scheduler.MessageSpec{
			Title:       "Personnes testées et personnes positives quotidiennement par âge : France · IDF · 92",
			Description: "actualisé vers 20h-23h",
			URL:         "https://solidarites-sante.gouv.fr/grands-dossiers/vaccin-covid-19/",
			Color:       0xdf03fc,
		},
		EphemeralChannel: viper.GetString("reports.ephemeral_channel"),
		Tick:             tick(),
		Cooldown:         6 * time.Hour,
		InterZonePause:   30 * time.Second,
		PublishPause:     30 * time.Minute,
	}
}

// Hospitalisation tracks hospital occupancy and outcomes from one
// department-level dataset, rolled up to region and country, with one
// publication slot per zone and the latest values listed in the
// message itself.
func Hospitalisation() scheduler.Config {
	viper.SetDefault("reports.hospitalisation.locator", "https://www.data.gouv.fr/fr/datasets/r/63352e38-d353-4b54-bfd1-f1b3ee1cabd7")
	viper.SetDefault("reports.hospitalisation.lag_days", 0)
	viper.SetDefault("reports.hospitalisation.minutes", []int{10, 40})

	locator := viper.GetString("reports.hospitalisation.locator")
	idf := []string{"75", "77", "78", "91", "92", "93", "94", "95"}

	return scheduler.Config{
		Name: "hospitalisation",
		Descriptors: []schema.DatasetDescriptor{
			{
				Key:         "france",
				Locator:     locator,
				ZoneColumn:  "dep",
				Color:       "#F6C1BC",
				Preposition: "en",
				DisplayName: "France",
				Reference:   true,
			},
			{
				Key:         "idf",
				Locator:     locator,
				ZoneColumn:  "dep",
				ZoneValues:  idf,
				Color:       "#F9D5D2",
				Preposition: "en",
				DisplayName: "IDF",
			},
			{
				Key:         "hauts-de-seine",
				Locator:     locator,
				ZoneColumn:  "dep",
				ZoneValues:  []string{"92"},
				Color:       "#FBE3E1",
				Preposition: "dans les",
				DisplayName: "Hauts-de-Seine",
			},
		},
		Render: schema.RenderConfig{
			Name:      "Hospitalisations",
			ShortName: "Hospitalisation",
			Metrics: []schema.MetricSpec{
				{Column: "hosp", Label: "Hospitalisations", Color: "0000FF", Width: 1},
				{Column: "HospConv", Label: "Hospitalisation conventionnelle", Color: "808000", DashArray: []float64{3, 1, 1, 1, 1, 1}, Width: 1},
				{Column: "SSR_USLD", Label: "SSR / USLD (covid long)", Color: "800080", DashArray: []float64{5, 4}, Width: 1},
				{Column: "rea", Label: "Réanimations ou soins intensifs", Color: "FF0000", DashArray: []float64{1, 1}, Width: 2.5},
				{Column: "autres", Label: "Hospitalisations dans un autre type de service", Color: "696969", DashArray: []float64{3, 1, 1, 1}, Width: 1},
				{Column: "rad", Label: "Retours à domicile", Color: "008000", DashArray: []float64{5, 4}, Width: 1},
				{Column: "dc", Label: "Décès à l'hôpital", Color: "000000", DashArray: []float64{6, 2, 1, 2}, Width: 1},
			},
			GridCols:    1,
			PanelWidth:  900,
			PanelHeight: 520,
			Scale:       schema.ThirdOfMaxScale,
			Footnote:    "SSR / USLD : Soins de Suite et de Réadaptation ou Unités de Soins de Longue Durée",
			OutDir:      outDir("hospitalisation"),
		},
		Filter:     &etl.Filter{Column: "sexe", Value: "0"},
		WindowDays: 60,
		LagDays:    viper.GetInt("reports.hospitalisation.lag_days"),
		Active:     activeWindow("reports.hospitalisation.minutes"),
		ZoneSlots: map[string]schema.Slot{
			"france":         slot("reports.hospitalisation.slot.france"),
			"idf":            slot("reports.hospitalisation.slot.idf"),
			"hauts-de-seine": slot("reports.hospitalisation.slot.hauts_de_seine"),
		},
		Message: scheduler.MessageSpec{
			Title:         "Hospitalisations · %s",
			Description:   "actualisé vers 20h-23h",
			URL:           "https://ansm.sante.fr/dossiers-thematiques/covid-19-vaccins/covid-19-vaccins-autorises",
			Color:         0xF6C1BC,
			FactsAsFields: true,
		},
		EphemeralChannel: viper.GetString("reports.ephemeral_channel"),
		Tick:             tick(),
		Cooldown:         6 * time.Hour,
		InterZonePause:   30 * time.Second,
		PublishPause:     30 * time.Minute,
	}
}

func activeWindow(minutesKey string) scheduler.ActiveWindow {
	viper.SetDefault("reports.active.from_hour", 18)
	viper.SetDefault("reports.active.to_hour", 23)
	return scheduler.ActiveWindow{
		FromHour: viper.GetInt("reports.active.from_hour"),
		ToHour:   viper.GetInt("reports.active.to_hour"),
		Minutes:  viper.GetIntSlice(minutesKey),
	}
}

func slot(key string) schema.Slot {
	return messenger.ResolveSlot(
		viper.GetString(key+".channel"),
		viper.GetString(key+".message"))
}

func outDir(report string) string {
	viper.SetDefault("reports.out_dir", "out")
	return filepath.Join(viper.GetString("reports.out_dir"), report)
}

func tick() time.Duration {
	viper.SetDefault("reports.tick", "55s")
	return viper.GetDuration("reports.tick")
}
