package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/syslog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/zathras777/ysiodo/odo"
	"go.uber.org/multierr"
)

func main() {
	var (
		mode      string
		cfgFn     string
		verbosity int
		useSyslog bool
	)

	flag.StringVar(&mode, "mode", "poll", "Mode: poll, read, info, reset-odo, reset-conductivity or simulate")
	flag.StringVar(&cfgFn, "cfg", "configuration.yaml", "Configuration file")
	flag.IntVar(&verbosity, "v", 0, "Log verbosity, 1 logs every frame")
	flag.BoolVar(&useSyslog, "syslog", true, "Log to syslog when running as a daemon")
	flag.Parse()

	cfg, err := parseConfiguration(cfgFn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	daemon := mode == "poll" || mode == "simulate"
	if daemon && useSyslog {
		logwriter, e := syslog.New(syslog.LOG_DEBUG|syslog.LOG_DAEMON, "ysiodo")
		if e == nil {
			log.SetOutput(logwriter)
		}
	}
	stdr.SetVerbosity(verbosity)
	logger := stdr.New(log.Default()).WithName(cfg.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, mode, cfg, logger); err != nil {
		log.Print(err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, mode string, cfg configData, logger logr.Logger) error {
	switch mode {
	case "poll":
		app, cleanup, err := initApplication(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		logger.Info("polling", "interval", cfg.interval(), "max_errors", cfg.MaxErrors)
		return app.run(ctx)
	case "simulate":
		return runSimulator(ctx, cfg.Simulator, logger.WithName("simulator"))
	case "read", "info", "reset-odo", "reset-conductivity":
		sensor, cleanup, err := initSensor(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		return runOnce(mode, sensor, json.NewEncoder(os.Stdout))
	}
	return fmt.Errorf("unknown mode %q", mode)
}

type sensorInfo struct {
	Device         odo.DeviceInfo        `json:"device"`
	Serial         odo.SerialSettings    `json:"serial"`
	CapSerial      string                `json:"cap_serial"`
	Coefficients   odo.CapCoefficients   `json:"cap_coefficients"`
	ODO            odo.CalibrationStatus `json:"odo_calibration"`
	Conductivity   odo.CalibrationStatus `json:"conductivity_calibration"`
	TDSCoefficient float32               `json:"tds_coefficient"`
}

// runOnce performs one of the single shot modes against the sensor.
func runOnce(mode string, sensor *odo.Client, out *json.Encoder) error {
	out.SetIndent("", "  ")
	switch mode {
	case "read":
		r, err := sensor.ReadData()
		if err != nil {
			return err
		}
		return out.Encode(r)
	case "info":
		info, err := readInfo(sensor)
		if err != nil {
			return err
		}
		return out.Encode(info)
	case "reset-odo":
		return sensor.ODOFactoryReset()
	case "reset-conductivity":
		return sensor.ConductivityFactoryReset()
	}
	return fmt.Errorf("unknown mode %q", mode)
}

// readInfo gathers everything the info mode prints, reporting every failed
// read rather than stopping at the first.
func readInfo(sensor *odo.Client) (sensorInfo, error) {
	var (
		info sensorInfo
		errs error
		err  error
	)
	info.Device, err = sensor.DeviceInfo()
	errs = multierr.Append(errs, err)
	info.Serial, err = sensor.SerialSettings()
	errs = multierr.Append(errs, err)
	info.CapSerial, err = sensor.CapSerial()
	errs = multierr.Append(errs, err)
	info.Coefficients, err = sensor.CapCoefficients()
	errs = multierr.Append(errs, err)
	info.ODO, err = sensor.ODOCalibrationStatus()
	errs = multierr.Append(errs, err)
	info.Conductivity, err = sensor.ConductivityCalibrationStatus()
	errs = multierr.Append(errs, err)
	info.TDSCoefficient, err = sensor.UserParameter(odo.TDSCoefficient)
	errs = multierr.Append(errs, err)
	return info, errs
}
