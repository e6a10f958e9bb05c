package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hwplan-api/internal/dto"
)

func TestCreateItemSchedulesAndMatchesContract(t *testing.T) {
	ta := newTestApp(t)
	schema := compileSchema(t, "item_schedule_response.schema.json")

	resp, raw := doJSON(t, ta.app, http.MethodPost, "/api/v1/items", 1, itemPayload("Essay", 90))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	validateAgainst(t, schema, raw)

	payload := decodeEnvelope(t, raw)
	require.True(t, payload.Success)
	require.Equal(t, "item scheduled", payload.Message)

	var data dto.ItemScheduleResponse
	require.NoError(t, json.Unmarshal(payload.Data, &data))
	require.True(t, data.Schedule.Complete)
	require.Len(t, data.Schedule.Chunks, 2)
	require.Equal(t, "2024-03-04T00:15:00Z", data.Schedule.Chunks[0].StartTime.UTC().Format("2006-01-02T15:04:05Z07:00"))
	require.Equal(t, 60, data.Schedule.Chunks[0].Minutes)
	require.Equal(t, 30, data.Schedule.Chunks[1].Minutes)
}

func TestCreateItemReportsShortfallWithSuccessStatus(t *testing.T) {
	ta := newTestApp(t)

	body := itemPayload("Thesis", 1500)
	body["due"] = "2024-03-05T09:00:00Z"
	resp, raw := doJSON(t, ta.app, http.MethodPost, "/api/v1/items", 1, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	payload := decodeEnvelope(t, raw)
	require.True(t, payload.Success)
	require.Equal(t, "deadline reached: 420 of 1500 minutes could not be scheduled", payload.Message)

	var data dto.ItemScheduleResponse
	require.NoError(t, json.Unmarshal(payload.Data, &data))
	require.False(t, data.Schedule.Complete)
	require.Equal(t, 420, data.Schedule.RemainingMinutes)
	require.Equal(t, 1080, data.Schedule.ScheduledMinutes)
}

func TestCreateItemRejectsBadInput(t *testing.T) {
	ta := newTestApp(t)

	resp, _ := doJSON(t, ta.app, http.MethodPost, "/api/v1/items", 0, itemPayload("Essay", 60))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	invalid := itemPayload("Essay", 60)
	invalid["max_chunk_duration"] = 0
	resp, raw := doJSON(t, ta.app, http.MethodPost, "/api/v1/items", 1, invalid)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	payload := decodeEnvelope(t, raw)
	require.Equal(t, "validation failed", payload.Message)
	require.Equal(t, "required", payload.Details["max_chunk_duration"])

	sameDay := itemPayload("Essay", 60)
	sameDay["start_date"] = "2024-03-06"
	resp, raw = doJSON(t, ta.app, http.MethodPost, "/api/v1/items", 1, sameDay)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, decodeEnvelope(t, raw).Message, "invalid schedule request")

	resp, _ = doJSON(t, ta.app, http.MethodGet, "/api/v1/items", 1, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestItemLifecycle(t *testing.T) {
	ta := newTestApp(t)

	resp, raw := doJSON(t, ta.app, http.MethodPost, "/api/v1/items", 1, itemPayload("Lab", 60))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created dto.ItemScheduleResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, raw).Data, &created))
	path := "/api/v1/items/" + jsonID(created.Item.ID)

	resp, _ = doJSON(t, ta.app, http.MethodGet, path, 2, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = doJSON(t, ta.app, http.MethodGet, path, 1, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched dto.ItemResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, raw).Data, &fetched))
	require.Equal(t, 60, fetched.ScheduledMinutes)

	resp, raw = doJSON(t, ta.app, http.MethodPatch, path, 1, map[string]interface{}{"total_time_needed": 150})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var updated dto.ItemScheduleResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, raw).Data, &updated))
	require.Equal(t, 150, updated.Schedule.ScheduledMinutes)
	require.Len(t, updated.Schedule.Chunks, 3)

	resp, raw = doJSON(t, ta.app, http.MethodPost, path+"/reschedule", 1, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "item rescheduled", decodeEnvelope(t, raw).Message)

	resp, raw = doJSON(t, ta.app, http.MethodGet, "/api/v1/items?page_size=1", 1, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, raw).Meta, &meta))
	require.Equal(t, int64(1), meta.TotalItems)

	resp, _ = doJSON(t, ta.app, http.MethodDelete, path, 1, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, ta.app, http.MethodGet, path, 1, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, ta.app, http.MethodGet, "/api/v1/items/abc", 1, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func jsonID(id uint) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
