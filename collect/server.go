// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DefaultAddr is where the viewer listens unless told otherwise.
const DefaultAddr = "localhost:8080"

// Server exposes the collected catalog over HTTP.
type Server struct {
	repo SchoolRepository
	addr string
}

func NewServer(repo SchoolRepository, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	return &Server{repo: repo, addr: addr}
}

func (s *Server) router() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.health)
	r.GET("/api/countries", s.listCountries)
	r.GET("/api/schools", s.listSchools)
	r.GET("/api/schools/cells", s.listCells)

	return r
}

// Run blocks serving the API.
func (s *Server) Run() error {
	return s.router().Run(s.addr)
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listCountries(ctx *gin.Context) {
	counts, err := s.repo.Countries()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, counts)
}

func (s *Server) listSchools(ctx *gin.Context) {
	code := ctx.Query("country")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "country query parameter is required"})

		return
	}

	limit := 100

	if l := ctx.Query("limit"); l != "" {
		if _, err := fmt.Sscanf(l, "%d", &limit); err != nil {
			limit = 100
		}
	}

	schools, err := s.repo.ListSchools(strings.ToUpper(code), ctx.Query("q"), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"schools": schools,
		"total":   len(schools),
	})
}

func (s *Server) listCells(ctx *gin.Context) {
	code := ctx.Query("country")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "country query parameter is required"})

		return
	}

	res := 6

	if r := ctx.Query("res"); r != "" {
		if _, err := fmt.Sscanf(r, "%d", &res); err != nil {
			res = 6
		}
	}

	if res < 1 || res > 8 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "res must be between 1 and 8"})

		return
	}

	counts, err := s.repo.CellCounts(strings.ToUpper(code), res)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"res":   res,
		"cells": counts,
	})
}
