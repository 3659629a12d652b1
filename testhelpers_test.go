//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/skillswap/service-booking/internal/application"
	bookingDomain "github.com/skillswap/service-booking/internal/domain/booking"
	bookingEvents "github.com/skillswap/service-booking/internal/events"
	"github.com/skillswap/service-booking/internal/repository"
	"github.com/skillswap/service-booking/pkg/database"
	"github.com/skillswap/service-booking/pkg/kafka"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// bookingStack holds wired-up service components.
type bookingStack struct {
	Bookings        *application.BookingService
	Wallets         *application.WalletService
	Skills          *application.SkillService
	Consumer        *bookingEvents.InboundConsumer
	CleanupProducer func()
}

// setupPostgres starts a PostgreSQL container and applies the SQL migrations.
func setupPostgres(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_booking",
		SSLMode:  "disable",
	}

	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), "migrations", logger))

	return db, func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}
}

// setupContainers starts PostgreSQL and Kafka.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	db, cleanupPG := setupPostgres(t)

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers,
		bookingEvents.TopicBookingNotifications,
		bookingEvents.TopicSessionEvents,
		bookingEvents.TopicCatalogEvents,
	)

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup: func() {
			if err := kafkaContainer.Terminate(ctx); err != nil {
				t.Logf("failed to terminate Kafka container: %v", err)
			}
			cleanupPG()
		},
	}
}

// setupBookingStack wires the services over the database. With no brokers, notifications
// go nowhere and no consumer is built.
func setupBookingStack(t *testing.T, db *gorm.DB, brokers []string) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	sqlDB, err := db.DB()
	require.NoError(t, err)

	var notifier application.Notifier = discardNotifier{}
	cleanup := func() {}
	if len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, logger)
		notifier = bookingEvents.NewKafkaNotifier(producer, logger)
		cleanup = func() { _ = producer.Close() }
	}

	uow := repository.NewGormUnitOfWork(db)
	clock := application.SystemClock{}
	bookings := application.NewBookingService(
		uow, bookingDomain.NewHourlyPricingStrategy(), notifier, clock, application.DefaultPolicy(), logger)
	wallets := application.NewWalletService(
		uow, repository.NewSqlxWalletHistoryReader(sqlx.NewDb(sqlDB, "pgx")), clock, logger)
	skills := application.NewSkillService(uow.Skills(), clock, logger)

	stack := &bookingStack{
		Bookings:        bookings,
		Wallets:         wallets,
		Skills:          skills,
		CleanupProducer: cleanup,
	}
	if len(brokers) > 0 {
		groupID := fmt.Sprintf("test-booking-%s", uuid.New().String()[:8])
		stack.Consumer = bookingEvents.NewInboundConsumer(brokers, groupID, bookings, skills, logger)
	}
	return stack
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, uuid.UUID, string, map[string]interface{}) error {
	return nil
}

// seedSkill registers a skill at 10 credits/hour for 1.5 hours.
func seedSkill(t *testing.T, stack *bookingStack, providerID uuid.UUID) uuid.UUID {
	t.Helper()
	skillID := uuid.New()
	_, err := stack.Skills.SyncSkill(context.Background(), application.SyncSkillRequest{
		SkillID:        skillID,
		ProviderID:     providerID,
		Title:          "Intro to Go",
		CreditsPerHour: decimal.NewFromInt(10),
		DurationHours:  decimal.RequireFromString("1.5"),
		IsActive:       true,
	})
	require.NoError(t, err)
	return skillID
}

// fund grants purchased credits to a user.
func fund(t *testing.T, stack *bookingStack, userID uuid.UUID, amount int64) {
	t.Helper()
	_, err := stack.Wallets.GrantCredits(context.Background(), uuid.New(), userID, application.GrantCreditsRequest{
		Bucket: "purchased",
		Amount: decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
}

// futureSlot returns a date a few days ahead so the slot is never inside the cutoff.
func futureSlot(daysAhead int) string {
	return time.Now().UTC().AddDate(0, 0, daysAhead).Format(bookingDomain.DateLayout)
}

// mustStart returns the UTC instant of a date and clock time.
func mustStart(t *testing.T, date, clock string) time.Time {
	t.Helper()
	at, err := time.ParseInLocation(bookingDomain.DateLayout+" "+bookingDomain.ClockLayout, date+" "+clock, time.UTC)
	require.NoError(t, err)
	return at
}

// waitForBookingStatus polls the bookings table until the status matches.
func waitForBookingStatus(t *testing.T, db *gorm.DB, bookingID uuid.UUID, expectedStatus string, timeout time.Duration) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		if err := db.Where("id = ?", bookingID).First(&model).Error; err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking did not transition to %s", expectedStatus)
	return result
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, key, eventType string, data interface{}) {
	t.Helper()
	producer := kafka.NewProducer(brokers, zap.NewNop())
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent("test", eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	require.NoError(t, producer.PublishEvent(context.Background(), topic, key, ce), "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type for key.
func consumeOneEvent(t *testing.T, brokers []string, topic, key, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		if string(msg.Key) != key {
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	time.Sleep(1 * time.Second)
}
