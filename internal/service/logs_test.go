package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
)

func TestLogService_List(t *testing.T) {
	store := &mockLogStore{
		listFn: func(_ context.Context, f model.AccessLogFilter) ([]*model.AccessLogRecord, error) {
			if f.SearchString != "upload" {
				t.Errorf("SearchString = %q", f.SearchString)
			}
			return []*model.AccessLogRecord{{AccessLogEntry: model.AccessLogEntry{ID: "l1"}}}, nil
		},
	}
	svc := NewLogService(store, testLogger())

	records, err := svc.List(context.Background(), model.AccessLogFilter{SearchString: "upload"})
	if err != nil || len(records) != 1 {
		t.Fatalf("List() = %v, %v", records, err)
	}
}

func TestLogService_List_Errors(t *testing.T) {
	svc := NewLogService(&mockLogStore{}, testLogger())
	if _, err := svc.List(context.Background(), model.AccessLogFilter{}); !apperror.LogsNotFound.Is(err) {
		t.Errorf("пустой журнал: %v, ожидалась LOGS_NOT_FOUND", err)
	}

	svc = NewLogService(&mockLogStore{
		listFn: func(context.Context, model.AccessLogFilter) ([]*model.AccessLogRecord, error) {
			return nil, errors.New("db down")
		},
	}, testLogger())
	if _, err := svc.List(context.Background(), model.AccessLogFilter{}); !apperror.DatabaseError.Is(err) {
		t.Errorf("сбой БД: %v, ожидалась DATABASE_ERROR", err)
	}
}
