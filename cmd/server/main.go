package main

import (
	"flag"
	"log/slog"
	"os"

	"fundsync/impl/auth"
	"fundsync/impl/core"
	"fundsync/internal/alert"
	"fundsync/internal/config"
	"fundsync/internal/database"
	"fundsync/internal/http-server/api"
	"fundsync/internal/queue"
	"fundsync/internal/stripeclient"
	"fundsync/lib/logger"
	"fundsync/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath)
	log.Info("starting fundsync", slog.String("config", *configPath), slog.String("env", conf.Env))

	db := database.NewMongoClient(conf)
	if db == nil {
		log.Error("mongo storage is required")
		os.Exit(1)
	}
	if err := db.EnsureIndexes(); err != nil {
		// The event_id unique index is what guarantees exactly-once
		// recording; refusing to start without it is the safe option.
		log.With(sl.Err(err)).Error("ensure indexes")
		os.Exit(1)
	}

	sc := stripeclient.New(conf, log)
	q := queue.New(conf.Worker.QueueSize, conf.Worker.Workers, log)

	c := core.New(db, sc, q, log)
	c.SetAuthService(auth.New(db))

	if conf.Telegram.Enabled {
		sender, err := alert.NewTelegram(conf.Telegram.ApiKey, conf.Telegram.ChatId, log)
		if err != nil {
			log.With(sl.Err(err)).Error("telegram alerts disabled")
		} else {
			c.SetAlertSender(sender)
		}
	}

	if err := api.New(conf, log, c); err != nil {
		log.With(sl.Err(err)).Error("api server stopped")
	}
	q.Stop()
}
