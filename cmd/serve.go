package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/itm-space/backend-resources/api/handlers"
	"github.com/itm-space/backend-resources/api/middleware"
	"github.com/itm-space/backend-resources/api/services"
	"github.com/itm-space/backend-resources/db"
	docs "github.com/itm-space/backend-resources/docs"
	"github.com/itm-space/backend-resources/internal/appconfig"
	awsclient "github.com/itm-space/backend-resources/internal/aws"
	"github.com/itm-space/backend-resources/internal/authn"
	"github.com/itm-space/backend-resources/internal/events"
	"github.com/itm-space/backend-resources/internal/secrets"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Backend Resources API
// @version v1
// @description User management for the platform realm.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server for handling API requests",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Resolve the Keycloak client secret
		clientSecret, err := resolveClientSecret(ctx, appCfg.Keycloak.ClientSecret)
		if err != nil {
			log.Fatal().Err(err).Str("source", appCfg.Keycloak.ClientSecret.Source).Msg("Failed to resolve Keycloak client secret")
		}

		// Initialise KeyCloak client
		keycloakClient := initializeKeycloakClient(appCfg.Keycloak, clientSecret)

		// Initialize event publisher
		var publisher events.Notifier = events.NopNotifier{}
		if appCfg.Pulsar.URL != "" {
			publisher, err = events.NewEventPublisher(appCfg.Pulsar.URL, appCfg.Pulsar.TopicProducer)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize event publisher")
			}
		} else {
			log.Warn().Msg("Pulsar URL not set, user events will not be published")
		}
		defer publisher.Close()

		service := &services.Service{
			KC:        keycloakClient,
			Publisher: publisher,
		}

		// The audit trail route is only served when the audit database is configured
		var audit handlers.AuditTrail
		if appCfg.Database.Source != "" {
			auditDB, err := db.NewAuditDB(appCfg.Database.Driver, appCfg.Database.Source, &log.Logger)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize audit database")
			}
			defer auditDB.Close()
			audit = auditDB
		} else {
			log.Warn().Msg("Database source not set, audit trail will not be served")
		}

		// Create routes
		r := mux.NewRouter()
		r.Use(middleware.Instrument)

		// Metrics
		r.Handle(appCfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)

		// Docs
		docs.SwaggerInfo.Host = appCfg.Host
		docs.SwaggerInfo.BasePath = appCfg.BasePath
		r.PathPrefix(appCfg.DocsPath).Handler(httpSwagger.Handler(
			httpSwagger.URL(path.Join(appCfg.DocsPath, "/doc.json")),
			httpSwagger.DeepLinking(true),
			httpSwagger.DocExpansion("none"),
			httpSwagger.DomID("swagger-ui"),
		)).Methods(http.MethodGet)

		// Register the routes
		api := r.PathPrefix(appCfg.BasePath).Subrouter()

		// Apply the middleware to the API routes
		api.Use(middleware.WithLogger)
		if appCfg.Auth.VerifyTokens {
			verifier, err := initializeVerifier(ctx, keycloakClient)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize token verifier")
			}
			api.Use(middleware.VerifyingJWTMiddleware(verifier))
		} else {
			api.Use(middleware.JWTMiddleware)
		}

		// User routes
		handlers.RegisterUserRoutes(api, service, audit, appCfg.Keycloak.ClientId, appCfg.Auth.RequiredRole)

		addr := fmt.Sprintf("%s:%d", host, port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("graceful shutdown failed")
			}
		}()

		log.Info().Msg(fmt.Sprintf("Server started at %s", addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("could not start server")
		}
		log.Info().Msg("Server stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")
}

// initializeKeycloakClient creates the Keycloak admin client. The access token
// is fetched on first use.
func initializeKeycloakClient(kcCfg appconfig.KeycloakConfig, clientSecret string) *services.KeycloakClient {
	keycloakClient := services.NewKeycloakClient(kcCfg.URL, kcCfg.ClientId, clientSecret, kcCfg.Realm)
	keycloakClient.HTTPClient.Timeout = time.Duration(kcCfg.TimeoutSeconds) * time.Second
	return keycloakClient
}

func initializeVerifier(ctx context.Context, kc *services.KeycloakClient) (*authn.Verifier, error) {
	publicKey, err := kc.GetRealmPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	return authn.NewVerifier(publicKey)
}

// resolveClientSecret reads the secret from the configured source. Only the
// configured source's client is created.
func resolveClientSecret(ctx context.Context, cfg appconfig.SecretConfig) (string, error) {
	resolver := secrets.Resolver{Sources: map[string]secrets.Source{
		secrets.SourceEnv: secrets.EnvSource{Lookuper: envconfig.OsLookuper()},
	}}

	switch cfg.Source {
	case secrets.SourceAWS:
		awsCfg, err := awsclient.LoadAWSConfig(ctx, appCfg.AWS.Region)
		if err != nil {
			return "", err
		}
		resolver.Sources[secrets.SourceAWS] = secrets.AWSSource{Client: awsclient.NewSecretsManagerClient(awsCfg)}
	case secrets.SourceKubernetes:
		client, err := initializeK8sClient()
		if err != nil {
			return "", err
		}
		resolver.Sources[secrets.SourceKubernetes] = secrets.KubernetesSource{Client: client}
	}

	return resolver.Resolve(ctx, cfg)
}

func initializeK8sClient() (*kubernetes.Clientset, error) {
	var config *rest.Config
	var err error

	// Check if running inside a Kubernetes pod
	if _, exists := os.LookupEnv("KUBERNETES_SERVICE_HOST"); exists {
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load in-cluster Kubernetes config: %w", err)
		}
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	return clientset, nil
}
