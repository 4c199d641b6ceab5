package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/vigie-covid/vigie/api"
	"github.com/vigie-covid/vigie/external/datasource"
	"github.com/vigie-covid/vigie/external/imghost"
	"github.com/vigie-covid/vigie/external/messenger"
	"github.com/vigie-covid/vigie/publisher"
	"github.com/vigie-covid/vigie/reports"
	"github.com/vigie-covid/vigie/scheduler"
	"github.com/vigie-covid/vigie/utils"
)

var server *api.Server

func initLog() {
	logLevel, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(logLevel)
	}

	log.SetOutput(os.Stdout)

	log.SetFormatter(&prefixed.TextFormatter{
		ForceFormatting: true,
		FullTimestamp:   true,
	})
}

func loadConfig(file string) {
	// Config from file
	viper.SetConfigType("yaml")
	if file != "" {
		viper.SetConfigFile(file)
	}

	viper.AddConfigPath("/.config/")
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()
	if err != nil {
		fmt.Println("No config file. Read config from env.")
		viper.AllowEmptyEnv(false)
	}

	// Config from env if possible
	viper.AutomaticEnv()
	viper.SetEnvPrefix("vigie")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func main() {
	var configFile string

	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Server is preparing to shutdown")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if server != nil {
			log.Info("Shutdown admin api server")
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("Server Shutdown:", err)
			}
		}
	}()

	flag.StringVar(&configFile, "c", "./config.yaml", "[optional] path of configuration file")
	flag.Parse()

	loadConfig(configFile)

	initLog()

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}

	// Sentry
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              viper.GetString("sentry.dsn"),
		AttachStacktrace: true,
		Environment:      viper.GetString("sentry.environment"),
		Dist:             viper.GetString("sentry.dist"),
	}); err != nil {
		log.Error(err)
	}
	log.WithField("prefix", "init").Info("Initialized sentry")

	// The freshness predicate and the active window follow the upstream
	// publisher's local calendar, not the host's.
	loc := utils.GetLocation(viper.GetString("scheduler.timezone"))
	if loc == nil {
		log.Panicf("unknown timezone: %s", viper.GetString("scheduler.timezone"))
	}
	clock := scheduler.NewClock(loc)

	source := datasource.New(nil)
	host := imghost.New(
		viper.GetString("imghost.token"),
		viper.GetString("imghost.endpoint"),
		httpClient)
	msgr := messenger.New(
		viper.GetString("messenger.endpoint"),
		viper.GetString("messenger.token"),
		viper.GetString("messenger.guild"),
		httpClient)
	pub := publisher.New(msgr, host)
	log.WithField("prefix", "init").Info("Initialized external collaborators")

	var wg sync.WaitGroup
	schedulers := make([]*scheduler.Scheduler, 0, 3)
	for _, cfg := range reports.All() {
		s := scheduler.New(cfg, source, pub, clock)
		schedulers = append(schedulers, s)

		wg.Add(1)
		go func(s *scheduler.Scheduler) {
			defer wg.Done()
			s.Run(ctx)
		}(s)
	}
	log.WithField("prefix", "init").Infof("Started %d report schedulers", len(schedulers))

	// Init http server
	server = api.NewServer(schedulers, pub, msgr)
	log.WithField("prefix", "init").Info("Initialized http server")

	if err := server.Run(":" + viper.GetString("server.port")); err != nil && err != http.ErrServerClosed {
		log.Error(err)
	}
	wg.Wait()
}
