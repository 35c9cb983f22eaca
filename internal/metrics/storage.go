package metrics

import (
	"context"
	"time"

	"github.com/jwebster45206/lootmap/pkg/storage"
)

// InstrumentedStorage wraps a Storage and records every call
type InstrumentedStorage struct {
	next     storage.Storage
	recorder *Recorder
	now      func() time.Time
}

var _ storage.Storage = (*InstrumentedStorage)(nil)

// Instrument wraps next so its operations show up on the recorder
func Instrument(next storage.Storage, recorder *Recorder) *InstrumentedStorage {
	return &InstrumentedStorage{next: next, recorder: recorder, now: time.Now}
}

func (s *InstrumentedStorage) observe(op string, start time.Time, err error) {
	s.recorder.ObserveStorage(op, err == nil, s.now().Sub(start))
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	start := s.now()
	err := s.next.Ping(ctx)
	s.observe("ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.next.Close()
}

func (s *InstrumentedStorage) Load(ctx context.Context) (storage.Document, storage.Schema, error) {
	start := s.now()
	doc, schema, err := s.next.Load(ctx)
	s.observe("load", start, err)
	return doc, schema, err
}

func (s *InstrumentedStorage) Save(ctx context.Context, doc storage.Document) error {
	start := s.now()
	err := s.next.Save(ctx, doc)
	s.observe("save", start, err)
	return err
}

func (s *InstrumentedStorage) Backup(ctx context.Context) (string, error) {
	start := s.now()
	name, err := s.next.Backup(ctx)
	s.observe("backup", start, err)
	return name, err
}
