package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/repository"
	"github.com/mamadbah2/jaggery/internal/service/ledger"
)

func TestWriteErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", &ledger.ValidationError{Field: "farmer_id", Reason: "is required"}, http.StatusBadRequest, "invalid farmer_id: is required"},
		{"duplicate lot", fmt.Errorf("%w: %q", ledger.ErrDuplicateLotNumber, "L1"), http.StatusConflict, "lot number already exists"},
		{"already packed", ledger.ErrAlreadyPacked, http.StatusConflict, "pick line already packed"},
		{"over stock", ledger.ErrExceedsAvailableStock, http.StatusUnprocessableEntity, "quantity exceeds available stock"},
		{"not found", fmt.Errorf("lot x: %w", repository.ErrNotFound), http.StatusNotFound, "record not found"},
		{"referential", repository.NewPersistenceError("delete farmer", repository.KindReferential, errors.New("fk")), http.StatusConflict, "Cannot delete this record as it is being used elsewhere."},
		{"malformed", repository.NewPersistenceError("create", repository.KindMalformed, errors.New("check")), http.StatusUnprocessableEntity, "Invalid data format. Please check your inputs."},
		{"generic store", repository.NewPersistenceError("create", repository.KindGeneric, errors.New("io")), http.StatusInternalServerError, "An error occurred. Please try again."},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			writeError(c, zap.NewNop(), "op", tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["error"], tt.body)
		})
	}
}

func TestDateUnmarshal(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-03-01"}`), &v))
	assert.True(t, v.D.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-03-01T10:30:00Z"}`), &v))
	assert.Equal(t, 10, v.D.Hour())

	require.NoError(t, json.Unmarshal([]byte(`{"d":null}`), &v))
	assert.True(t, v.D.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"d":"01/03/2024"}`), &v))
}

func TestParseBasis(t *testing.T) {
	basis, err := parseBasis("Planned")
	require.NoError(t, err)
	assert.EqualValues(t, "planned", basis)

	_, err = parseBasis("average")
	assert.Error(t, err)
}
