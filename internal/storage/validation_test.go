package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/mileage-audit/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	for _, s := range []string{"", "   ", "\t\n"} {
		if err := validateString(s, "param"); !errors.Is(err, ErrEmptyString) {
			t.Errorf("validateString(%q) error = %v, want ErrEmptyString", s, err)
		}
	}
	if err := validateString("runs.db", "param"); err != nil {
		t.Errorf("validateString() unexpected error: %v", err)
	}
}

func TestValidateRun(t *testing.T) {
	valid := func() (model.Run, []model.ScoredAggregate) {
		rows := []model.ScoredAggregate{
			{ClaimAggregate: model.ClaimAggregate{ClaimID: "1", EmployeeID: "E1", ElementCount: 1}, Label: model.LabelNormal},
			{ClaimAggregate: model.ClaimAggregate{ClaimID: "2", EmployeeID: "E1", ElementCount: 3}, Label: model.LabelAnomalous},
		}
		return model.Run{ID: "r1", ReferenceTime: time.Now(), Anomalies: 1, Normals: 1}, rows
	}

	tests := []struct {
		mutate func(*model.Run, []model.ScoredAggregate)
		want   error
		name   string
	}{
		{name: "valid", mutate: func(*model.Run, []model.ScoredAggregate) {}},
		{name: "missing id", mutate: func(r *model.Run, _ []model.ScoredAggregate) { r.ID = " " }, want: ErrInvalidRun},
		{name: "zero reference time", mutate: func(r *model.Run, _ []model.ScoredAggregate) { r.ReferenceTime = time.Time{} }, want: ErrInvalidRun},
		{name: "count mismatch", mutate: func(r *model.Run, _ []model.ScoredAggregate) { r.Normals = 5 }, want: ErrInvalidRun},
		{name: "bad label", mutate: func(_ *model.Run, rows []model.ScoredAggregate) { rows[0].Label = 0 }, want: ErrInvalidClaim},
		{name: "empty aggregate", mutate: func(_ *model.Run, rows []model.ScoredAggregate) { rows[1].ElementCount = 0 }, want: ErrInvalidClaim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, rows := valid()
			tt.mutate(&run, rows)
			err := validateRun(run, rows)
			if tt.want == nil {
				if err != nil {
					t.Errorf("validateRun() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("validateRun() error = %v, want %v", err, tt.want)
			}
		})
	}
}
