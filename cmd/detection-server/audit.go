package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/natefinch/lumberjack"

	"github.com/nutrivision/food-detection-service/config"
	"github.com/nutrivision/food-detection-service/labels"
	"github.com/nutrivision/food-detection-service/models"
)

// auditLog appends one JSON line per request that produced detections to a
// size-rotated file, so field issues can be replayed without debug logging.
type auditLog struct {
	writer  *lumberjack.Logger
	display *labels.Cache
	table   []string
}

type auditEntry struct {
	Time       string   `json:"time"`
	RequestID  string   `json:"request_id"`
	Detections []string `json:"detections"`
}

func newAuditLog(cfg config.Audit, table []string) *auditLog {
	return &auditLog{
		writer: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		},
		display: labels.NewCache(64),
		table:   table,
	}
}

func (a *auditLog) record(requestID string, dets []models.Detection) {
	if len(dets) == 0 {
		return
	}

	entry := auditEntry{
		Time:       time.Now().Format(time.RFC3339),
		RequestID:  requestID,
		Detections: make([]string, 0, len(dets)),
	}
	for _, d := range dets {
		entry.Detections = append(entry.Detections,
			fmt.Sprintf("%s %.2f [%.0f,%.0f,%.0f,%.0f]",
				a.displayName(d.ClassID, d.Label), d.Confidence, d.X1, d.Y1, d.X2, d.Y2))
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	a.writer.Write(append(data, '\n'))
}

// displayName memoizes the formatted class name; the table itself is
// read-only, the cache only saves the Sprintf per class.
func (a *auditLog) displayName(classID int, fallback string) string {
	if v, ok := a.display.Get(classID); ok {
		return v
	}
	name := fallback
	if classID >= 0 && classID < len(a.table) {
		name = a.table[classID]
	}
	v := fmt.Sprintf("%s#%d", name, classID)
	a.display.Put(classID, v)
	return v
}
