package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/germanamz/modelgate/pkg/attachments"
	"github.com/germanamz/modelgate/pkg/config"
	"github.com/germanamz/modelgate/pkg/gateway"
	"github.com/germanamz/modelgate/pkg/logger"
	"github.com/germanamz/modelgate/pkg/metrics"
	"github.com/germanamz/modelgate/pkg/modeladapter/usage"
	"github.com/germanamz/modelgate/pkg/models"
	"github.com/germanamz/modelgate/pkg/registry"
)

// app is everything a command needs.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	reg     *registry.Registry
	gw      *gateway.Gateway
	usage   *usage.Tracker
	metrics *metrics.Metrics
	promReg *prometheus.Registry
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func newApp(configPath string, u models.UsageType) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	met := metrics.New(promReg)

	opts := []registry.Option{registry.WithLogger(log), registry.WithMetrics(met)}
	if cfg.AttachmentsDir != "" {
		store, err := attachments.NewDirStore(cfg.AttachmentsDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, registry.WithAttachments(store))
	}

	reg, err := registry.New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	tracker := &usage.Tracker{}
	gw := gateway.New(reg,
		gateway.WithLogger(log),
		gateway.WithMetrics(met),
		gateway.WithRecorder(tracker),
		gateway.WithUsageType(u),
	)

	return &app{cfg: cfg, log: log, reg: reg, gw: gw, usage: tracker, metrics: met, promReg: promReg}, nil
}

func parseUsage(s string) (models.UsageType, error) {
	u, err := models.ParseUsageType(s)
	if err != nil {
		return "", fmt.Errorf("-usage: %w", err)
	}
	return u, nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
