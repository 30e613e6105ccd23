package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/logger"
	pb "github.com/oshokin/sos-button/internal/pb/v1"
)

// maxBodySize caps an alert request body.
const maxBodySize = 64 << 10

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	SubmitAlert(ctx context.Context, alert *domain.Alert) (*domain.Receipt, error)
	RecentAlerts(ctx context.Context, limit int) ([]*domain.Alert, error)
}

var errBadLimit = errors.New("limit must be a positive integer")

type handler struct {
	service Service
}

// NewRouter builds the HTTP handler for service.
func NewRouter(ctx context.Context, service Service) *mux.Router {
	h := &handler{service: service}

	router := mux.NewRouter()
	router.Use(requestLogging(logger.WithName(ctx, "http")))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.HandleFunc(pb.HealthPath, h.health).Methods(http.MethodGet)
	router.HandleFunc(pb.SendAlertPath, h.sendAlert).Methods(http.MethodPost)
	router.HandleFunc(pb.ListAlertsPath, h.listAlerts).Methods(http.MethodGet)

	return router
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *handler) sendAlert(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var message structpb.Struct
	if err = protojson.Unmarshal(body, &message); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	alert, err := pb.AlertFromStruct(&message)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err = alert.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.service.SubmitAlert(r.Context(), alert)
	if err != nil {
		logger.ErrorKV(r.Context(), "Failed to journal alert", "alert_id", alert.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to journal alert")

		return
	}

	response, err := pb.ReceiptToStruct(receipt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to encode receipt")
		return
	}

	code := http.StatusCreated
	if receipt.Duplicate {
		code = http.StatusOK
	}

	writeMessage(w, code, response)
}

func (h *handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := h.service.RecentAlerts(r.Context(), limit)
	if err != nil {
		logger.ErrorKV(r.Context(), "Failed to list alerts", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to list alerts")

		return
	}

	response, err := pb.AlertListToStruct(alerts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to encode alerts")
		return
	}

	writeMessage(w, http.StatusOK, response)
}

// parseLimit reads the limit query parameter, 0 when absent.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errBadLimit
	}

	return limit, nil
}

func writeMessage(w http.ResponseWriter, code int, message proto.Message) {
	data, err := protojson.Marshal(message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// statusRecorder captures the response code for logging.
type statusRecorder struct {
	http.ResponseWriter

	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogging logs every request and puts the named logger into the request context.
func requestLogging(ctx context.Context) mux.MiddlewareFunc {
	log := logger.FromContext(ctx)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(recorder, r.WithContext(logger.ToContext(r.Context(), log)))

			logger.DebugKV(ctx, "HTTP request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.code,
				"duration", time.Since(started),
			)
		})
	}
}
