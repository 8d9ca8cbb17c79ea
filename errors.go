/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"log"
	"strings"
	"time"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// logErrors drains handler write errors so they never block a request.
func logErrors(cfg *Config, errs <-chan error) {
	for err := range errs {
		logf(cfg, "ERROR: %v", err)
	}
}

// newPage renders a bare page whose whole body links back to home.
func newPage(cfg *Config, title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon(cfg))
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"%s/\">%s</a></body></html>", cfg.prefix, html.EscapeString(body)))

	return htmlBody.String()
}
