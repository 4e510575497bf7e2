// Package testutil holds shared fixtures and collaborator stubs for
// package tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/footprintai/backend/internal/extraction"
	"github.com/footprintai/backend/internal/history"
	"github.com/footprintai/backend/internal/models"
	"github.com/footprintai/backend/internal/storage"
	"github.com/footprintai/backend/internal/verification"
)

// MemStore implements storage.Store fully in memory.
type MemStore struct {
	mu    sync.RWMutex
	files map[string]*models.FileInfo
	data  map[string][]byte
	next  int
}

var _ storage.Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		files: make(map[string]*models.FileInfo),
		data:  make(map[string][]byte),
	}
}

func (m *MemStore) Save(name, mediaType string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("file-%d", m.next)
	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		MediaType:  mediaType,
		UploadedAt: time.Now(),
	}
	m.files[id] = info
	m.data[id] = data
	return info, nil
}

func (m *MemStore) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.files[id]
	if !ok {
		return nil, errors.New("file not found")
	}
	return info, nil
}

func (m *MemStore) ReadBytes(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[id]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (m *MemStore) List(limit int) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []*models.FileInfo
	for _, info := range m.files {
		list = append(list, info)
		if limit > 0 && len(list) >= limit {
			break
		}
	}
	return list, nil
}

func (m *MemStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return errors.New("file not found")
	}
	delete(m.files, id)
	delete(m.data, id)
	return nil
}

func (m *MemStore) GetFilePath(id string) (string, error) {
	return "/mem/" + id, nil
}

// AddFile registers a file with fixed content, bypassing Save.
func (m *MemStore) AddFile(id, name string, data []byte) *models.FileInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		MediaType:  "image/png",
		UploadedAt: time.Now(),
	}
	m.files[id] = info
	m.data[id] = data
	return info
}

// FileCount returns the number of stored files.
func (m *MemStore) FileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// StubExtractor is a canned api.Extractor / verification.Corrector.
// Zero value returns errors; set the fields to script behavior.
type StubExtractor struct {
	Response     *extraction.Response
	ExtractErr   error
	Standard     *extraction.StandardPackage
	StandardErr  error
	Verdict      *verification.Verdict
	VerifyErr    error
	ExtractCalls int
	VerifyCalls  int
}

func (s *StubExtractor) Extract(ctx context.Context, images []models.ImageData, opts extraction.ExtractOptions) (*extraction.Response, error) {
	s.ExtractCalls++
	if s.ExtractErr != nil {
		return nil, s.ExtractErr
	}
	if s.Response == nil {
		return nil, errors.New("stub: no response configured")
	}
	return s.Response, nil
}

func (s *StubExtractor) DetectStandardPackage(ctx context.Context, img models.ImageData) (*extraction.StandardPackage, error) {
	if s.StandardErr != nil {
		return nil, s.StandardErr
	}
	if s.Standard == nil {
		return nil, errors.New("stub: no standard package configured")
	}
	return s.Standard, nil
}

func (s *StubExtractor) VerifyFootprint(ctx context.Context, req verification.Request) (*verification.Verdict, error) {
	s.VerifyCalls++
	if s.VerifyErr != nil {
		return nil, s.VerifyErr
	}
	if s.Verdict == nil {
		return nil, errors.New("stub: no verdict configured")
	}
	return s.Verdict, nil
}

func (s *StubExtractor) Model() string { return "stub-model" }

// StubHistory records entries in memory.
type StubHistory struct {
	mu      sync.Mutex
	Entries []history.Entry
}

func (s *StubHistory) Record(ctx context.Context, e history.Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, e)
	return int64(len(s.Entries)), nil
}

func (s *StubHistory) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]history.Entry{}, s.Entries...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PNGStub is a minimal payload standing in for image bytes.
var PNGStub = bytes.Repeat([]byte{0x89, 0x50, 0x4E, 0x47}, 4)

// SO8EPFootprint builds an SO-8 with exposed pad: eight signal pads in
// two columns, a thermal pad, and a 2x3 via array.
func SO8EPFootprint() *models.Footprint {
	outline := models.NewOutline(3.9, 4.9)

	pads := make([]models.Pad, 0, 9)
	ys := []float64{1.905, 0.635, -0.635, -1.905}
	for i, y := range ys {
		pads = append(pads, models.Pad{
			Designator: fmt.Sprintf("%d", i+1),
			X:          -2.498, Y: y,
			Width: 0.802, Height: 1.505, Rotation: 90,
			Shape: models.ShapeRectangular, Type: models.PadTypeSMD,
			Confidence: 0.95,
		})
	}
	for i, y := range ys {
		pads = append(pads, models.Pad{
			Designator: fmt.Sprintf("%d", 8-i),
			X:          2.498, Y: y,
			Width: 0.802, Height: 1.505, Rotation: 90,
			Shape: models.ShapeRectangular, Type: models.PadTypeSMD,
			Confidence: 0.95,
		})
	}
	pads = append(pads, models.Pad{
		Designator: "EP",
		Width:      2.613, Height: 3.502,
		Shape: models.ShapeRectangular, Type: models.PadTypeSMD,
		Confidence: 0.9,
	})

	var vias []models.Via
	for _, x := range []float64{-0.6, 0.6} {
		for _, y := range []float64{-1.0, 0.0, 1.0} {
			vias = append(vias, models.Via{X: x, Y: y, Diameter: 0.5, DrillDiameter: 0.2})
		}
	}

	return &models.Footprint{
		Name:        "SO-8EP",
		Description: "Extracted from datasheet image",
		Pads:        pads,
		Vias:        vias,
		Outline:     &outline,
	}
}

// SO8EPResult wraps the fixture footprint as an extraction result with
// pin 1 resolved to the first pad.
func SO8EPResult() *models.ExtractionResult {
	fp := SO8EPFootprint()
	idx := 0
	return &models.ExtractionResult{
		PackageType:       "custom",
		Units:             "mm",
		Pads:              fp.Pads,
		Vias:              fp.Vias,
		Pin1Detected:      true,
		Pin1Index:         &idx,
		Outline:           fp.Outline,
		OverallConfidence: 0.92,
		Warnings:          []string{},
	}
}
