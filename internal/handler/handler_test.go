package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/hwplan-api/internal/config"
	"github.com/noah-isme/hwplan-api/internal/database"
	"github.com/noah-isme/hwplan-api/internal/handler"
	"github.com/noah-isme/hwplan-api/internal/middleware"
	"github.com/noah-isme/hwplan-api/internal/repository"
	"github.com/noah-isme/hwplan-api/internal/router"
	"github.com/noah-isme/hwplan-api/internal/scheduler"
	"github.com/noah-isme/hwplan-api/internal/service"
)

const testSecret = "handler-secret"

type testApp struct {
	app    *fiber.App
	events service.ScheduleEvents
}

func newTestApp(t *testing.T) testApp {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.Nop()
	validate := validator.New()
	cfg := config.Config{AppName: "hwplan-test", AppEnv: "test", Location: time.UTC}

	chunks := repository.NewChunkRepository(db)
	events := service.NewScheduleEvents(nil, "", nil, logger)
	schedules := service.NewScheduleService(chunks, repository.NewScheduleRunRepository(db), events, time.UTC, logger)
	policies := service.NewPolicyService(repository.NewUserRepository(db), scheduler.DefaultPolicy(), validate, logger)
	calendar := service.NewCalendarService(chunks, nil, time.Minute, time.UTC, logger)
	items := service.NewItemService(repository.NewItemRepository(db), chunks, schedules, policies, calendar, events, validate, time.UTC, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ItemHandler:           handler.NewItemHandler(items, logger),
		CalendarHandler:       handler.NewCalendarHandler(calendar, logger),
		SettingsHandler:       handler.NewSettingsHandler(policies, logger),
		ScheduleStreamHandler: handler.NewScheduleStreamHandler(events, logger),
		JWTMiddleware:         middleware.JWTProtected(testSecret),
		WriteRateLimiter:      middleware.RateLimit("items", 100, time.Minute),
	})

	return testApp{app: app, events: events}
}

func tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": fmt.Sprint(userID)})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, app *fiber.App, method, path string, userID uint, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

func decodeEnvelope(t *testing.T, raw []byte) envelope {
	t.Helper()
	var payload envelope
	require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	return payload
}

func compileSchema(t *testing.T, file string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", file))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)
	return schema
}

func validateAgainst(t *testing.T, schema *jsonschema.Schema, raw []byte) {
	t.Helper()
	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NoError(t, schema.Validate(payload))
}

func itemPayload(name string, total int) map[string]interface{} {
	return map[string]interface{}{
		"name":               name,
		"kind":               "homework",
		"due":                "2024-03-06T12:00:00Z",
		"start_date":         "2024-03-04",
		"total_time_needed":  total,
		"max_chunk_duration": 60,
	}
}
