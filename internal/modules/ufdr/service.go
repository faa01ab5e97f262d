package ufdr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cognis/internal/database"
	"cognis/internal/domain"
)

type FileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.UploadedFile, error)
	GetByHash(ctx context.Context, hash string) (*domain.UploadedFile, error)
	CreateWithArtifacts(ctx context.Context, f *domain.UploadedFile, artifacts []domain.Artifact) error
	List(ctx context.Context, limit int) ([]domain.UploadedFile, error)
	Delete(ctx context.Context, id string) error
}

type CaseFinder interface {
	GetByID(ctx context.Context, id string) (*domain.Case, error)
}

type IngestInput struct {
	Filename string
	Content  io.Reader
	// Size is the size declared by the client, or -1 when unknown.
	Size       int64
	CaseID     *string
	UploadedBy *string
}

type IngestResult struct {
	File        *domain.UploadedFile
	ArtifactIDs []string
}

type Service struct {
	files   FileRepository
	cases   CaseFinder
	storage *Storage
	maxSize int64
}

func NewService(files FileRepository, cases CaseFinder, storage *Storage, maxSize int64) *Service {
	return &Service{files: files, cases: cases, storage: storage, maxSize: maxSize}
}

// Ingest stores an uploaded file, rejects content that was uploaded before,
// and records the file together with its placeholder artifacts.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	res, err := s.ingest(ctx, in)
	uploadsTotal.WithLabelValues(uploadResult(err)).Inc()
	return res, err
}

func (s *Service) ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	if in.Size == 0 {
		return nil, ErrEmptyFile
	}
	if in.Size > s.maxSize {
		return nil, ErrFileTooLarge
	}

	if in.CaseID != nil {
		if _, err := s.cases.GetByID(ctx, *in.CaseID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCaseNotFound
			}
			return nil, fmt.Errorf("load case: %w", err)
		}
	}

	filename := SanitizeFilename(in.Filename)
	storageName := storagePrefix() + "_" + filename

	obj, err := s.storage.Save(storageName, in.Content, s.maxSize)
	if err != nil {
		return nil, err
	}
	if obj.Size == 0 {
		s.storage.Remove(obj.Path)
		return nil, ErrEmptyFile
	}

	existing, err := s.files.GetByHash(ctx, obj.Hash)
	switch {
	case err == nil && existing != nil:
		s.storage.Remove(obj.Path)
		return nil, ErrDuplicateContent
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		s.storage.Remove(obj.Path)
		return nil, fmt.Errorf("lookup content hash: %w", err)
	}

	meta, err := json.Marshal(map[string]any{"hash": obj.Hash})
	if err != nil {
		s.storage.Remove(obj.Path)
		return nil, fmt.Errorf("encode meta: %w", err)
	}

	file := &domain.UploadedFile{
		CaseID:      in.CaseID,
		Filename:    filename,
		StoragePath: obj.Path,
		Meta:        datatypes.JSON(meta),
		ContentHash: obj.Hash,
		UploadedBy:  in.UploadedBy,
		SizeBytes:   obj.Size,
	}
	artifacts := demoArtifacts(filename)
	// Distinct timestamps keep listing order equal to extraction order.
	now := time.Now().UTC()
	for i := range artifacts {
		artifacts[i].CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
	}

	if err := s.files.CreateWithArtifacts(ctx, file, artifacts); err != nil {
		s.storage.Remove(obj.Path)
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateContent
		}
		return nil, fmt.Errorf("record upload: %w", err)
	}

	uploadedBytes.Add(float64(obj.Size))

	ids := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		ids = append(ids, a.ID)
	}
	return &IngestResult{File: file, ArtifactIDs: ids}, nil
}

// List returns uploaded files, newest first.
func (s *Service) List(ctx context.Context) ([]domain.UploadedFile, error) {
	files, err := s.files.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if files == nil {
		files = []domain.UploadedFile{}
	}
	return files, nil
}

// Delete removes a file, its artifacts and its bytes. Only admins and the
// uploader may do so.
func (s *Service) Delete(ctx context.Context, caller *domain.User, fileID string) error {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("load file: %w", err)
	}

	if caller == nil || !(caller.HasRole(domain.RoleAdmin) || file.UploadedByUser(caller.ID)) {
		return ErrNotOwner
	}

	if err := s.files.Delete(ctx, file.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("delete file: %w", err)
	}

	s.storage.Remove(file.StoragePath)
	log.Printf("ufdr_file_deleted file_id=%s by=%s", file.ID, caller.ID)
	return nil
}

func storagePrefix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// demoArtifacts stands in for real extraction until a UFDR parser exists.
func demoArtifacts(filename string) []domain.Artifact {
	raw := datatypes.JSON(`{"demo": true}`)
	return []domain.Artifact{
		{
			Type:          domain.ArtifactMessage,
			ExtractedText: fmt.Sprintf("Extracted message sample for %s: phone number +91-99999xxxx", filename),
			Raw:           raw,
		},
		{
			Type:          domain.ArtifactContact,
			ExtractedText: fmt.Sprintf("Contact entry found in %s: John Doe, +1-555-0123", filename),
			Raw:           raw,
		},
		{
			Type:          domain.ArtifactLog,
			ExtractedText: fmt.Sprintf("Log snippet from %s: login at 2025-09-01T12:00:00Z", filename),
			Raw:           raw,
		},
	}
}
