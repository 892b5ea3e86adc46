package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
	"github.com/mamadbah2/jaggery/internal/service/ledger"
)

const dateLayout = "2006-01-02"

// Date accepts either a calendar date or an RFC 3339 timestamp in JSON.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must look like %s", raw, dateLayout)
	}
	return t, nil
}

func parseBasis(raw string) (models.ValueBasis, error) {
	switch basis := models.ValueBasis(strings.ToLower(raw)); basis {
	case "", models.BasisBlended, models.BasisRealized, models.BasisPlanned:
		return basis, nil
	default:
		return "", errors.New("basis must be one of realized, planned or blended")
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// writeError translates service errors into HTTP responses. Business rule
// messages go back verbatim; storage failures get their user-facing text.
func writeError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrDuplicateLotNumber), errors.Is(err, ledger.ErrAlreadyPacked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ledger.ErrEmptyItemList),
		errors.Is(err, ledger.ErrExceedsAvailableStock),
		errors.Is(err, ledger.ErrEmptyQuantity),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidRate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ledger.ErrPickLineNotFound), errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var perr *repository.PersistenceError
	if errors.As(err, &perr) {
		status := http.StatusInternalServerError
		switch perr.Kind {
		case repository.KindUniqueness, repository.KindReferential:
			status = http.StatusConflict
		case repository.KindMalformed:
			status = http.StatusUnprocessableEntity
		}
		if status == http.StatusInternalServerError {
			logger.Error(op+" failed", zap.Error(err))
		} else {
			logger.Warn(op+" rejected by store", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": perr.UserMessage()})
		return
	}

	logger.Error(op+" failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
