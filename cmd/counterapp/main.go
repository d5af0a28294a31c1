package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/linqra/counterapp/cmd/flags"
	"github.com/linqra/counterapp/counter"
	"github.com/linqra/counterapp/docstore"
	"github.com/linqra/counterapp/health"
	"github.com/linqra/counterapp/httpserver"
	"github.com/linqra/counterapp/lifecycle"
	"github.com/linqra/counterapp/registry"
	"github.com/linqra/counterapp/security"
)

func main() {
	app := &cli.App{
		Name:   "counterapp",
		Usage:  "Counter API service with registry registration, TLS negotiation, and JWT-protected endpoints",
		Flags:  flags.ServiceFlags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	appName := cCtx.String(flags.AppNameFlag.Name)
	port := cCtx.Int(flags.PortFlag.Name)
	environment := cCtx.String(flags.EnvironmentFlag.Name)
	httpEnabled := cCtx.Bool(flags.HTTPEnabledFlag.Name)

	// TLS context: nil config means the primary listener runs in
	// plaintext, and registration advertises the non-secure port.
	tlsConfig, err := security.BuildServerTLSConfig(security.TLSOptions{
		Enabled:      cCtx.Bool(flags.SSLEnabledFlag.Name),
		CertPath:     cCtx.String(flags.ServerCertFlag.Name),
		KeyPath:      cCtx.String(flags.ServerKeyFlag.Name),
		CABundlePath: cCtx.String(flags.CABundleFlag.Name),
		MutualTLS:    cCtx.Bool(flags.MutualTLSFlag.Name),
	}, logger)
	if err != nil {
		logger.Error("Failed to build server TLS configuration", "err", err)
		return err
	}

	cfg := flags.ConfigureServer(cCtx, logger, fmt.Sprintf("0.0.0.0:%d", port))
	cfg.TLSConfig = tlsConfig
	cfg.HTTPEnabled = httpEnabled

	keycloakCfg := security.NewKeycloakConfig(
		cCtx.String(flags.KeycloakHostFlag.Name),
		cCtx.String(flags.KeycloakPortFlag.Name),
		cCtx.String(flags.KeycloakIssuerFlag.Name),
		cCtx.String(flags.KeycloakJWKSFlag.Name),
	)
	roleValidator := security.NewRoleValidator(keycloakCfg, logger)
	keySetValidator := security.NewKeySetValidator(keycloakCfg, logger)

	registryClient := registry.NewClient(registry.Config{
		AppName:              appName,
		RegistryHost:         cCtx.String(flags.RegistryHostFlag.Name),
		RegistryPort:         cCtx.String(flags.RegistryPortFlag.Name),
		RegistryPath:         cCtx.String(flags.RegistryPathFlag.Name),
		InstanceHost:         cCtx.String(flags.InstanceHostFlag.Name),
		InstancePort:         port,
		SecurePortEnabled:    tlsConfig != nil,
		NonSecurePortEnabled: tlsConfig == nil,
		Log:                  logger,
	})

	probe, err := health.NewGopsutilProbe()
	if err != nil {
		logger.Error("Failed to initialize system probe", "err", err)
		return err
	}

	documents, err := docstore.NewStore(cCtx.String(flags.OpenAPIDocFlag.Name), logger)
	if err != nil {
		logger.Error("Failed to configure OpenAPI document store", "err", err)
		return err
	}

	handler := httpserver.NewHandler(httpserver.HandlerConfig{
		ServiceName:     appName,
		Environment:     environment,
		Counter:         counter.NewService("Application counter"),
		Health:          health.NewReporter(appName, probe, logger),
		Documents:       documents,
		Registry:        registryClient,
		RequireRoles:    security.RequireRoles(roleValidator),
		RequireVerified: security.RequireVerifiedToken(keySetValidator),
		Log:             logger,
	})

	server, err := httpserver.New(cfg, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	logger.Info("Starting server", "listenAddr", cfg.ListenAddr, "tls", tlsConfig != nil)
	server.RunInBackground()

	// Register after the listeners are up so the registry never
	// advertises an instance that refuses connections. The heartbeat
	// starts only on successful registration; a failed registration
	// leaves the service running unregistered.
	if registryClient.Register(context.Background()) {
		registryClient.StartHeartbeat()
	}

	coordinator := lifecycle.NewCoordinator(server, registryClient, logger)
	logger.Info("Server is running, press Ctrl+C to stop")
	coordinator.WaitForSignal(cCtx.Context)
	coordinator.Shutdown()

	return nil
}
