package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/repositories"
)

// validate checks request payload structs against their binding tags.
var validate = validator.New()

const maxUploadMemory = 32 << 20

// parseID rejects malformed UUIDs before any store round-trip.
func parseID(raw, label string) (string, error) {
	if _, err := uuid.Parse(raw); err != nil {
		return "", apperr.New(apperr.InvalidArgument, "invalid "+label)
	}
	return raw, nil
}

// decodeJSON unmarshals and validates a request body.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "invalid request body", err)
	}
	if err := validate.Struct(dst); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "invalid request payload", err)
	}
	return nil
}

// requireOwner enforces the uniform ownership rule: mutating a resource you
// do not own is Forbidden, regardless of the operation.
func requireOwner(ownerID, principalID string) error {
	if ownerID != principalID {
		return apperr.New(apperr.Forbidden, "you do not own this resource")
	}
	return nil
}

// lookupErr rewraps a store lookup failure: a missing resource becomes
// NotFound with a labelled message, everything else passes through.
func lookupErr(err error, label string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, label+" not found", err)
	}
	return err
}

// stagedFile is a multipart upload copied to local disk pending remote upload.
type stagedFile struct {
	Path string
	Name string
}

// Remove deletes the staged copy. Safe to call on the zero value.
func (f stagedFile) Remove() {
	if f.Path != "" {
		_ = os.Remove(f.Path)
	}
}

// stageFormFile copies the named multipart file into dir and returns its
// local path. A missing field returns an empty stagedFile and no error so
// optional uploads stay a one-line check for the caller.
func stageFormFile(r *http.Request, field, dir string) (stagedFile, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return stagedFile{}, nil
		}
		return stagedFile{}, apperr.Wrap(apperr.InvalidArgument, "invalid "+field+" upload", err)
	}
	defer file.Close()

	staged, err := copyToTemp(file, header, dir)
	if err != nil {
		return stagedFile{}, apperr.Wrap(apperr.Internal, "failed to stage upload", err)
	}

	return staged, nil
}

func copyToTemp(file multipart.File, header *multipart.FileHeader, dir string) (stagedFile, error) {
	tmp, err := os.CreateTemp(dir, "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return stagedFile{}, err
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return stagedFile{}, err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return stagedFile{}, err
	}

	return stagedFile{Path: tmp.Name(), Name: header.Filename}, nil
}

// assetKey builds the remote storage key for an upload, namespaced by kind.
func assetKey(kind, originalName string) string {
	return kind + "/" + uuid.NewString() + filepath.Ext(originalName)
}
