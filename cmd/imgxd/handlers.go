// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/docpipe/pdf-imgx"
)

type api struct {
	cfg   AppConfig
	log   zerolog.Logger
	store imgx.Store
	proc  imgx.Processor
}

func newAPI(cfg AppConfig, log zerolog.Logger, store imgx.Store, proc imgx.Processor) *api {
	return &api{cfg: cfg, log: log, store: store, proc: proc}
}

// uploadReply is the JSON body returned for a processed upload.
type uploadReply struct {
	Message     string            `json:"message"`
	TotalImages int               `json:"totalImages,omitempty"`
	Images      map[string]string `json:"images,omitempty"`
	Metadata    *imgx.Meta        `json:"metadata,omitempty"`
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "PDF image extraction service is running"})
}

const uploadPageHTML = `<!doctype html>
<html>
<head><title>Upload PDF</title></head>
<body>
<h1>Upload a PDF file</h1>
<form action="/images" method="post" enctype="multipart/form-data">
  <input type="file" name="file" accept=".pdf">
  <input type="submit" value="Upload">
</form>
</body>
</html>
`

// handleUploadPage serves a browser form posting to the upload endpoint.
func (a *api) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, uploadPageHTML)
}

// handleUpload accepts a multipart PDF upload, extracts its embedded
// images into the store and replies with the URLs of the user photo
// and signature images.
func (a *api) handleUpload(w http.ResponseWriter, r *http.Request) {
	// The multipart envelope adds overhead beyond the file itself, so
	// the hard request cap sits above the file-size limit; the exact
	// file check happens below.
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file part in the request"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No selected file"})
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid file type. Only PDF files are allowed"})
		return
	}
	if header.Size > a.cfg.MaxUploadSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File size exceeds 2MB limit"})
		return
	}

	// The upload is persisted under a fresh random name so concurrent
	// uploads never collide, and removed once processing is done.
	tmpName := imgx.RandomDigits(imgx.IDLength) + ".pdf"
	tmpPath := filepath.Join(a.cfg.UploadDir, tmpName)
	if err := saveUpload(tmpPath, file); err != nil {
		a.log.Error().Err(err).Msg("persisting upload")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to store upload"})
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			a.log.Warn().Err(err).Str("path", tmpPath).Msg("removing temporary upload")
		}
	}()

	names, err := a.proc.Extract(r.Context(), tmpPath, a.store)
	if err != nil {
		// A document-level failure is reported to the client the same
		// way as a PDF without images, but logged distinctly.
		a.log.Error().Err(err).Str("upload", header.Filename).Msg("document failed to process")
		writeJSON(w, http.StatusOK, uploadReply{Message: "No images found in the PDF"})
		return
	}
	if len(names) == 0 {
		a.log.Info().Str("upload", header.Filename).Msg("no images found")
		writeJSON(w, http.StatusOK, uploadReply{Message: "No images found in the PDF"})
		return
	}

	var meta *imgx.Meta
	if f, rd, err := imgx.Open(tmpPath); err == nil {
		m := rd.Info()
		meta = &m
		f.Close()
	}

	images := map[string]string{}
	for _, n := range names {
		switch {
		case strings.HasPrefix(n, "user-img-"):
			images["user-image"] = a.imageURL(r, n)
		case strings.HasPrefix(n, "sign-img-"):
			images["sign-image"] = a.imageURL(r, n)
		}
	}

	a.log.Info().Int("total", len(names)).Str("upload", header.Filename).Msg("processed")
	writeJSON(w, http.StatusOK, uploadReply{
		Message:     "File successfully processed",
		TotalImages: len(names),
		Images:      images,
		Metadata:    meta,
	})
}

// handleServeImage serves a previously extracted image by name.
func (a *api) handleServeImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if strings.ContainsAny(name, `/\`) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid file name"})
		return
	}
	data, err := a.store.Get(name)
	if errors.Is(err, imgx.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "File not found"})
		return
	}
	if err != nil {
		a.log.Error().Err(err).Str("name", name).Msg("reading image")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read file"})
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(name, data))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (a *api) imageURL(r *http.Request, name string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/images/%s", scheme, r.Host, name)
}

func contentTypeFor(name string, data []byte) string {
	switch filepath.Ext(name) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".jp2", ".jpx":
		return "image/jp2"
	}
	return http.DetectContentType(data)
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already out; nothing left to do but note it.
		return
	}
}
