package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/tableqa/config"
	"github.com/spektr-org/tableqa/dispatch"
	"github.com/spektr-org/tableqa/loader"
	"github.com/spektr-org/tableqa/logging"
	"github.com/spektr-org/tableqa/model"
	"github.com/spektr-org/tableqa/web"
)

// CLI holds the command line flags. Host and port override the config file.
type CLI struct {
	Config string `short:"c" long:"config" description:"path to a tableqa config file"`
	Host   string `long:"host" description:"listen to this host"`
	Port   int    `short:"p" long:"port" description:"listen to this port"`
}

func parseCLI() CLI {
	cli := CLI{}
	parser := flags.NewNamedParser(os.Args[0], flags.Default)
	if _, err := parser.AddGroup("tableqa-web flags", "Settings for the table question answering form", &cli); err != nil {
		panic(err)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	return cli
}

func main() {
	cli := parseCLI()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		logrus.WithError(err).Fatal("❌ unable to load config")
	}
	if cli.Host != "" {
		cfg.Web.Host = cli.Host
	}
	if cli.Port != 0 {
		cfg.Web.Port = cli.Port
	}

	log := logging.New(cfg.Log)
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	handle, err := model.Load(cfg.Model)
	if err != nil {
		log.WithError(err).Fatal("❌ unable to load model")
	}
	log.WithField("model", handle.Name()).Info("🤖 model ready")

	d := dispatch.New(handle, handle.MaxLength(), dispatch.WithLogger(log))
	srv, err := web.New(cfg.Web, loader.New(log), d, log)
	if err != nil {
		log.WithError(err).Fatal("❌ unable to build web server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Fatal("❌ web server stopped")
	}
}
