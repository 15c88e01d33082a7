//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/google/wire"
	"github.com/zathras777/ysiodo/odo"
)

func initApplication(ctx context.Context, cfg configData, log logr.Logger) (*application, func(), error) {
	wire.Build(
		provideSensor,
		wire.Bind(new(Sensor), new(*odo.Client)),
		provideMetrics,
		provideMQTT,
		provideStore,
		provideSinks,
		provideObserver,
		providePoller,
		newApplication,
	)
	return nil, nil, nil
}

func initSensor(cfg configData, log logr.Logger) (*odo.Client, func(), error) {
	wire.Build(provideSensor)
	return nil, nil, nil
}
