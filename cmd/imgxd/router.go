// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func newRouter(api *api) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/", api.handleStatus)
	r.Get("/upload", api.handleUploadPage)
	r.Route("/images", func(r chi.Router) {
		r.Post("/", api.handleUpload)
		r.Get("/{filename}", api.handleServeImage)
	})

	return r
}
