package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/configvault/internal/crypto/domain"
	rotationUsecase "github.com/allisson/configvault/internal/rotation/usecase"
)

// RunRotationStatus reports the latest completed rotation, whether the
// quarterly deadline has passed, and optionally the most recent audit
// records.
//
// Requirements: Database must be migrated and accessible.
func RunRotationStatus(
	ctx context.Context,
	useCase rotationUsecase.KeyRotationUseCase,
	writer io.Writer,
	format string,
	historyLimit int,
) error {
	status, err := useCase.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get rotation status: %w", err)
	}

	var history []*statusHistoryEntry
	if historyLimit > 0 {
		records, err := useCase.List(ctx, "", 0, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list rotation records: %w", err)
		}
		for _, record := range records {
			history = append(history, &statusHistoryEntry{
				ID:        record.ID.String(),
				Status:    string(record.Status),
				Reason:    record.Reason,
				CreatedAt: record.CreatedAt.Format("2006-01-02 15:04:05"),
				Error:     record.ErrorMessage,
			})
		}
	}

	if format == "json" {
		return outputStatusJSON(writer, status, history)
	}
	outputStatusText(writer, status, history)
	return nil
}

type statusHistoryEntry struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
	Error     string `json:"error,omitempty"`
}

// outputStatusText outputs the status in human-readable text format.
func outputStatusText(writer io.Writer, status *rotationUsecase.RotationStatus, history []*statusHistoryEntry) {
	if status.Latest == nil {
		_, _ = fmt.Fprintln(writer, "No completed rotation on record")
	} else {
		latest := status.Latest
		_, _ = fmt.Fprintf(writer, "Last rotation:       %s\n", latest.CompletedAt.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(writer, "Active key:          %s\n",
			cryptoDomain.TruncateFingerprint(latest.NewKeyFingerprint))
		_, _ = fmt.Fprintf(writer, "Next rotation due:   %s\n", status.NextRotationDue.Format("2006-01-02"))
		if status.Overdue {
			_, _ = fmt.Fprintln(writer, "Status:              OVERDUE - rotate now")
		} else {
			_, _ = fmt.Fprintln(writer, "Status:              ok")
		}
	}

	if len(history) > 0 {
		_, _ = fmt.Fprintln(writer)
		_, _ = fmt.Fprintln(writer, "Recent rotation attempts:")
		for _, entry := range history {
			line := fmt.Sprintf("  %s  %-11s  %s", entry.CreatedAt, entry.Status, entry.Reason)
			if entry.Error != "" {
				line += fmt.Sprintf(" (%s)", entry.Error)
			}
			_, _ = fmt.Fprintln(writer, line)
		}
	}
}

// outputStatusJSON outputs the status in JSON format for machine consumption.
func outputStatusJSON(writer io.Writer, status *rotationUsecase.RotationStatus, history []*statusHistoryEntry) error {
	result := map[string]any{
		"overdue": status.Overdue,
	}
	if status.Latest != nil {
		result["last_rotation"] = status.Latest.CompletedAt
		result["active_key_fingerprint"] = status.Latest.NewKeyFingerprint
		result["next_rotation_due"] = status.NextRotationDue
	}
	if history != nil {
		result["history"] = history
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
