// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/configvault/internal/config"
	cryptoDomain "github.com/allisson/configvault/internal/crypto/domain"
	cryptoService "github.com/allisson/configvault/internal/crypto/service"
	"github.com/allisson/configvault/internal/database"
	"github.com/allisson/configvault/internal/masking"
	"github.com/allisson/configvault/internal/metrics"
	rotationRepository "github.com/allisson/configvault/internal/rotation/repository"
	rotationUsecase "github.com/allisson/configvault/internal/rotation/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider

	// Managers and services
	txManager        database.TxManager
	aeadManager      cryptoService.AEADManager
	blobCipher       cryptoService.Cipher
	kmsService       cryptoService.KMSService
	operationMetrics metrics.OperationMetrics

	// Repositories
	rotationRecordRepo rotationUsecase.RotationRecordRepository

	// Use Cases
	keyRotationUseCase rotationUsecase.KeyRotationUseCase

	// Initialization flags and mutex for thread-safety
	mu                     sync.Mutex
	loggerInit             sync.Once
	dbInit                 sync.Once
	metricsProviderInit    sync.Once
	txManagerInit          sync.Once
	aeadManagerInit        sync.Once
	blobCipherInit         sync.Once
	kmsServiceInit         sync.Once
	operationMetricsInit   sync.Once
	rotationRecordRepoInit sync.Once
	keyRotationInit        sync.Once
	initErrors             map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// BlobCipher returns the artifact blob cipher.
func (c *Container) BlobCipher() cryptoService.Cipher {
	c.blobCipherInit.Do(func() {
		c.blobCipher = cryptoService.NewBlobCipher(c.AEADManager())
	})
	return c.blobCipher
}

// KMSService returns the KMS keeper factory used for wrapping generated keys.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// MetricsProvider returns the metrics provider instance.
// Returns nil when metrics are disabled in configuration.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// OperationMetrics returns the operation metrics recorder.
// Returns the no-op implementation when metrics are disabled.
func (c *Container) OperationMetrics() (metrics.OperationMetrics, error) {
	c.operationMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["operationMetrics"] = err
			return
		}
		if provider == nil {
			c.operationMetrics = metrics.NewNoOpOperationMetrics()
			return
		}
		m, err := metrics.NewOperationMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["operationMetrics"] = fmt.Errorf("failed to create operation metrics: %w", err)
			return
		}
		c.operationMetrics = m
	})
	if storedErr, exists := c.initErrors["operationMetrics"]; exists {
		return nil, storedErr
	}
	return c.operationMetrics, nil
}

// RotationRecordRepository returns the rotation audit-trail repository.
func (c *Container) RotationRecordRepository() (rotationUsecase.RotationRecordRepository, error) {
	c.rotationRecordRepoInit.Do(func() {
		repo, err := c.initRotationRecordRepository()
		if err != nil {
			c.initErrors["rotationRecordRepo"] = err
			return
		}
		c.rotationRecordRepo = repo
	})
	if storedErr, exists := c.initErrors["rotationRecordRepo"]; exists {
		return nil, storedErr
	}
	return c.rotationRecordRepo, nil
}

// KeyRotationUseCase returns the key rotation use case, wrapped with metrics
// instrumentation when metrics are enabled.
func (c *Container) KeyRotationUseCase() (rotationUsecase.KeyRotationUseCase, error) {
	c.keyRotationInit.Do(func() {
		useCase, err := c.initKeyRotationUseCase()
		if err != nil {
			c.initErrors["keyRotationUseCase"] = err
			return
		}
		c.keyRotationUseCase = useCase
	})
	if storedErr, exists := c.initErrors["keyRotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyRotationUseCase, nil
}

// EncryptionAlgorithm resolves the configured AEAD algorithm.
func (c *Container) EncryptionAlgorithm() (cryptoDomain.Algorithm, error) {
	switch c.config.EncryptionAlgorithm {
	case string(cryptoDomain.AESGCM):
		return cryptoDomain.AESGCM, nil
	case string(cryptoDomain.ChaCha20):
		return cryptoDomain.ChaCha20, nil
	default:
		return "", fmt.Errorf("%w: %s", cryptoDomain.ErrUnsupportedAlgorithm, c.config.EncryptionAlgorithm)
	}
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Flush metrics if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	// Scrub sensitive-looking values (card numbers, phones, e-mail addresses)
	// out of every string attribute before it reaches the log sink.
	scrubber := masking.NewScrubber()
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Value.Kind() == slog.KindString {
				attr.Value = slog.StringValue(scrubber.ScrubString(attr.Value.String()))
			}
			return attr
		},
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initRotationRecordRepository creates the rotation record repository instance.
func (c *Container) initRotationRecordRepository() (rotationUsecase.RotationRecordRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rotation record repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return rotationRepository.NewMySQLRotationRecordRepository(db), nil
	case "postgres":
		return rotationRepository.NewPostgreSQLRotationRecordRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKeyRotationUseCase creates the key rotation use case with all its dependencies.
func (c *Container) initKeyRotationUseCase() (rotationUsecase.KeyRotationUseCase, error) {
	recordRepo, err := c.RotationRecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation record repository for key rotation use case: %w", err)
	}

	algorithm, err := c.EncryptionAlgorithm()
	if err != nil {
		return nil, err
	}

	operationMetrics, err := c.OperationMetrics()
	if err != nil {
		return nil, err
	}

	useCase := rotationUsecase.NewKeyRotationUseCase(
		recordRepo,
		c.BlobCipher(),
		c.config.ArtifactPath,
		algorithm,
		c.config.RotationInterval(),
		c.Logger(),
	)

	return rotationUsecase.NewKeyRotationUseCaseWithMetrics(useCase, operationMetrics), nil
}
