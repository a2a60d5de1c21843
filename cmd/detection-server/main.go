package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/nutrivision/food-detection-service/config"
	"github.com/nutrivision/food-detection-service/detections"
	"github.com/nutrivision/food-detection-service/labels"
	"github.com/nutrivision/food-detection-service/logger"
	"github.com/nutrivision/food-detection-service/metrics"
	"github.com/nutrivision/food-detection-service/pipeline"
)

type appState struct {
	detector *pipeline.Detector
	met      *metrics.Collector
	audit    *auditLog
	log      *zap.Logger
}

type detectionJSON struct {
	Label      string     `json:"label"`
	ClassID    int        `json:"class_id"`
	Confidence float32    `json:"confidence"`
	Box        [4]float32 `json:"box"` // x1, y1, x2, y2 in original-image pixels
}

type detectResponse struct {
	RequestID       string          `json:"request_id"`
	Detections      []detectionJSON `json:"detections"`
	InferenceTimeMs int             `json:"inference_time_ms"`
	ProcessedWidth  int             `json:"processed_width"`
	ProcessedHeight int             `json:"processed_height"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("loading configuration: %v\n", err)
		return
	}

	log, err := logger.New(cfg.Development)
	if err != nil {
		fmt.Printf("building logger: %v\n", err)
		return
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	labelTable, err := labels.Load(cfg.LabelsPath)
	if err != nil {
		return err
	}
	if len(labelTable) != cfg.Model.NumClasses {
		return fmt.Errorf("label table has %d entries, model expects %d classes",
			len(labelTable), cfg.Model.NumClasses)
	}

	if cfg.Model.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.Model.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initializing onnxruntime: %w", err)
	}
	defer ort.DestroyEnvironment()

	session, err := detections.NewModelSession(cfg.Model.Path, detections.SessionConfig{
		InputSize:      cfg.Model.InputSize,
		NumClasses:     cfg.Model.NumClasses,
		NumPredictions: cfg.Model.NumPredictions,
		InputName:      cfg.Model.InputName,
		OutputName:     cfg.Model.OutputName,
		IntraOpThreads: cfg.Model.IntraOpThreads,
	})
	if err != nil {
		return err
	}
	defer session.Destroy()

	met := metrics.New()
	detector := pipeline.New(pipeline.Config{
		InputSize:           cfg.Model.InputSize,
		NumClasses:          cfg.Model.NumClasses,
		NumPredictions:      cfg.Model.NumPredictions,
		ConfidenceThreshold: cfg.Detection.ConfidenceThreshold,
		IoUThreshold:        cfg.Detection.IoUThreshold,
		FrameSkipInterval:   cfg.Scheduler.FrameSkipInterval,
		MinInterval:         time.Duration(cfg.Scheduler.MinIntervalMs) * time.Millisecond,
	}, session, labelTable,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(met),
	)

	state := &appState{
		detector: detector,
		met:      met,
		audit:    newAuditLog(cfg.Audit, labelTable),
		log:      log,
	}

	r := mux.NewRouter()
	r.HandleFunc("/detect", state.handleDetect).Methods("POST")
	r.Handle("/metrics", met.Handler()).Methods("GET")
	r.HandleFunc("/healthz", handleHealthz).Methods("GET")

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Server.Addr,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	log.Info("starting detection server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("model", cfg.Model.Path),
		zap.Int("classes", cfg.Model.NumClasses))
	return srv.ListenAndServe()
}

func (s *appState) handleDetect(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	imgBytes, err := readImageBytes(r)
	if err != nil {
		sendError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		sendError(w, "invalid_image", "failed to decode image", http.StatusBadRequest)
		return
	}

	result, admitted := s.detector.ProcessImage(img)
	if !admitted {
		// The drop-current policy mapped onto HTTP: no queueing, the
		// caller retries on its own cadence.
		sendError(w, "busy", "a detection run is already in flight", http.StatusTooManyRequests)
		return
	}

	resp := detectResponse{
		RequestID:       requestID,
		Detections:      make([]detectionJSON, 0, len(result.Detections)),
		InferenceTimeMs: result.InferenceTimeMs,
		ProcessedWidth:  result.ProcessedWidth,
		ProcessedHeight: result.ProcessedHeight,
	}
	for _, d := range result.Detections {
		resp.Detections = append(resp.Detections, detectionJSON{
			Label:      d.Label,
			ClassID:    d.ClassID,
			Confidence: d.Confidence,
			Box:        [4]float32{d.X1, d.Y1, d.X2, d.Y2},
		})
	}

	s.audit.record(requestID, result.Detections)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("writing response", zap.Error(err))
	}
}

// readImageBytes accepts the same shapes the service always has: a JSON
// body with a base64 image, a multipart upload, or raw bytes.
func readImageBytes(r *http.Request) ([]byte, error) {
	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		contentType = ""
	}
	switch contentType {
	case "application/json":
		var req struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(req.Image)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	default:
		return io.ReadAll(r.Body)
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func sendError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}
