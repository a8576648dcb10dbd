package services

import "time"

// Clock hooks for deterministic tests.

func (s *BlockService) SetNow(now func() time.Time) { s.now = now }

func (s *DetectionService) SetNow(now func() time.Time) { s.now = now }

func (s *LoginMonitorService) SetNow(now func() time.Time) { s.now = now }

func (s *ReportService) SetNow(now func() time.Time) { s.now = now }
