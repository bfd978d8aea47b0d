// Package seed loads master process definitions from YAML.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"compliance_calendar/internal/domain/calendar"

	"gopkg.in/yaml.v3"
)

// File models a seed document.
type File struct {
	Processes []ProcessDef `yaml:"processes"`
}

// ProcessDef declares one master process.
type ProcessDef struct {
	Name         string         `yaml:"name"`
	Temporality  string         `yaml:"temporality"`
	Frequency    int            `yaml:"frequency,omitempty"`
	StartsOnDay1 bool           `yaml:"starts_on_day_1,omitempty"`
	Milestones   []MilestoneDef `yaml:"milestones"`
}

// MilestoneDef declares one milestone template.
type MilestoneDef struct {
	Name          string `yaml:"name"`
	ReferenceDate string `yaml:"reference_date,omitempty"`
	DeadlineTime  string `yaml:"deadline_time,omitempty"`
	Mandatory     bool   `yaml:"mandatory,omitempty"`
	Critical      bool   `yaml:"critical,omitempty"`
	Category      string `yaml:"category,omitempty"`
}

// Parse decodes and validates a seed document.
func Parse(data []byte) ([]*calendar.MasterProcess, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("seed: document is empty")
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	processes := make([]*calendar.MasterProcess, 0, len(f.Processes))
	for i, def := range f.Processes {
		p, err := def.toProcess()
		if err != nil {
			return nil, fmt.Errorf("seed: process %d (%s): %w", i+1, def.Name, err)
		}
		processes = append(processes, p)
	}
	return processes, nil
}

// LoadFile reads and parses a seed file.
func LoadFile(path string) ([]*calendar.MasterProcess, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

func (d ProcessDef) toProcess() (*calendar.MasterProcess, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, calendar.NewValidationError("name", "is required")
	}
	p := &calendar.MasterProcess{
		Name:         d.Name,
		Temporality:  calendar.Temporality(strings.ToUpper(strings.TrimSpace(d.Temporality))),
		Frequency:    d.Frequency,
		StartsOnDay1: d.StartsOnDay1,
	}
	switch p.Temporality {
	case calendar.TemporalityDaily:
		if p.Frequency < 1 {
			return nil, calendar.NewValidationError("frequency", "must be at least 1 for DAILY")
		}
	case calendar.TemporalityWeekly, calendar.TemporalityMonthly:
	default:
		return nil, calendar.NewValidationError("temporality", fmt.Sprintf("%q is not DAILY, WEEKLY or MONTHLY", d.Temporality))
	}

	for _, m := range d.Milestones {
		if strings.TrimSpace(m.Name) == "" {
			return nil, calendar.NewValidationError("milestones.name", "is required")
		}
		ref, err := calendar.ParseOptionalDate("reference_date", m.ReferenceDate)
		if err != nil {
			return nil, err
		}
		deadlineTime, err := calendar.ParseOptionalTimeOfDay(m.DeadlineTime)
		if err != nil {
			return nil, err
		}
		p.Templates = append(p.Templates, &calendar.MilestoneTemplate{
			Name:          m.Name,
			ReferenceDate: ref,
			DeadlineTime:  deadlineTime,
			Mandatory:     m.Mandatory,
			Critical:      m.Critical,
			Category:      m.Category,
		})
	}
	return p, nil
}

// Apply creates every process in one transaction.
func Apply(ctx context.Context, tx calendar.Transactor, processes []*calendar.MasterProcess) error {
	return tx.WithinTx(ctx, func(ctx context.Context, st calendar.Stores) error {
		for _, p := range processes {
			if err := st.Processes.Create(ctx, p); err != nil {
				return fmt.Errorf("seed: create %s: %w", p.Name, err)
			}
		}
		return nil
	})
}
