package aralert_api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dnamazing/aralert/logger"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Notifier delivers an alert over one channel. Delivery is attempted once.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}

// ComposeMessage writes the short alert text sent by SMS.
func ComposeMessage(alert Alert) string {
	if len(alert.Classes) == 0 {
		return fmt.Sprintf("No AR genes found in sample %s.", alert.Sample)
	}
	return fmt.Sprintf(
		"Possible AR genes found in sample %s. Strain may resist:\n %s.",
		alert.Sample,
		strings.Join(alert.Classes, ",\n"),
	)
}

// ComposeSubject writes the email subject line.
func ComposeSubject(alert Alert) string {
	if len(alert.Classes) == 0 {
		return fmt.Sprintf("AR detection report for %s: no resistance detected", alert.Sample)
	}
	return fmt.Sprintf("AR detection report for %s: %d antibiotic classes", alert.Sample, len(alert.Classes))
}

// ComposeBody writes the email body.
func ComposeBody(alert Alert, contact string) string {
	var sb strings.Builder
	sb.WriteString("Dear user,\n\n")
	if len(alert.Classes) == 0 {
		fmt.Fprintf(&sb, "No resistances were detected in sample %s.\n", alert.Sample)
	} else {
		fmt.Fprintf(&sb, "Warning, resistances to the following drug classes were detected in sample %s:\n\n", alert.Sample)
		for _, class := range titleClasses(alert.Classes) {
			sb.WriteString("  - ")
			sb.WriteString(class)
			sb.WriteString("\n")
		}
	}
	if alert.RunID != "" {
		fmt.Fprintf(&sb, "\nRun: %s\n", alert.RunID)
	}
	sb.WriteString("\n\nThe DNAmazing team\n")
	if contact != "" {
		fmt.Fprintf(&sb, "\nContact us at: %s\n", contact)
	}
	return sb.String()
}

func titleClasses(classes []string) []string {
	caser := cases.Title(language.English, cases.Compact)
	titled := make([]string, len(classes))
	for idx, class := range classes {
		titled[idx] = caser.String(class)
	}
	return titled
}

// MultiNotifier sends an alert over every channel it holds and reports all
// failures together.
type MultiNotifier []Notifier

func (m MultiNotifier) Name() string {
	names := make([]string, len(m))
	for idx, notifier := range m {
		names[idx] = notifier.Name()
	}
	return strings.Join(names, ",")
}

func (m MultiNotifier) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, alert); err != nil {
			logger.Error("Alert delivery failed", zap.String("channel", notifier.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
			continue
		}
		logger.Info("Alert sent", zap.String("channel", notifier.Name()), zap.String("sample", alert.Sample))
	}
	return errors.Join(errs...)
}
