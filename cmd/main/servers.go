package main

import (
	"context"

	"fx-agent/src/config"
	"fx-agent/src/grpc_control"
	"fx-agent/src/interfaces"
	"fx-agent/src/logger"
	"fx-agent/src/server"
)

// -----------------------------------------------------------------------------

// startServers launches the HTTP/websocket API and the gRPC health server.
func startServers(
	ctx context.Context,
	conf *config.Config,
	service interfaces.IDecisionService,
	decisionCache interfaces.IDecisionCache,
	appLogger *logger.Logger,
) (*server.APIServer, *grpc_control.ControlServer) {

	// 1. API Server
	srv := server.NewAPIServer(conf.MConfig, logger.NewLogger(conf.MConfig, "APIServer"), service, decisionCache)
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	control := grpc_control.NewControlServer(conf.MConfig, logger.NewLogger(conf.MConfig, "ControlService"))
	go func() {
		if err := control.Start(ctx); err != nil {
			appLogger.Critical("failed to serve gRPC: %v", err)
		}
	}()
	control.SetServing(true)

	return srv, control
}
