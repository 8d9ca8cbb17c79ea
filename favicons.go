/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"net/http"
	"path"
	"time"

	"github.com/julienschmidt/httprouter"
)

//go:embed favicons/*
var favicons embed.FS

func getFavicon(cfg *Config) string {
	return `<link rel="icon" type="image/svg+xml" href="` + cfg.prefix + `/favicons/favicon.svg">
	<meta name="theme-color" content="#0f172a">`
}

func serveFavicons(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data, err := favicons.ReadFile(path.Join("favicons", path.Base(p.ByName("favicon"))))
		if err != nil {
			http.NotFound(w, r)

			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("Expires", time.Now().Add(24*time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}
