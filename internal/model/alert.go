package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Address is the operator-supplied street address attached to a confirmed
// alert. Every field is optional in storage but expected in practice.
type Address struct {
	Apartment string `json:"apartment,omitempty"`
	Street    string `json:"street,omitempty"`
	District  string `json:"district,omitempty"`
}

// ConfirmedAlert is an operator-acknowledged reading promoted to a durable
// record. Location is [longitude, latitude]. Immutable once written, never
// deleted by this system.
type ConfirmedAlert struct {
	ID          string     `json:"id,omitempty"`
	Location    []float64  `json:"location"`
	Address     Address    `json:"address"`
	Temperature float64    `json:"temperature"`
	SmokeLevel  SmokeLevel `json:"smokeLevel"`
	DeviceID    string     `json:"device_id"`
	Timestamp   time.Time  `json:"timestamp"`
}

var (
	ErrNoLocation  = errors.New("location is required and must be a 2-element [lon, lat] array")
	ErrNoTemp      = errors.New("temperature is required")
	ErrNoSmoke     = errors.New("smokeLevel is required")
	ErrNoDeviceID  = errors.New("device_id is required")
	ErrBadLocation = errors.New("location must have exactly 2 elements")
)

// AlertSubmission is the confirm-alert request body. Pointer fields make
// absence detectable: the original backend meant to reject a missing
// temperature/smokeLevel but its check never fired, so the fix lives here.
type AlertSubmission struct {
	Location    []float64   `json:"location"`
	Address     Address     `json:"address"`
	Temperature *float64    `json:"temperature"`
	SmokeLevel  *SmokeLevel `json:"smokeLevel"`
	DeviceID    string      `json:"device_id"`
	Name        string      `json:"name,omitempty"`
}

// Validate applies the confirmation rules before any write happens.
func (s *AlertSubmission) Validate() error {
	if s == nil || s.Location == nil {
		return ErrNoLocation
	}
	if len(s.Location) != 2 {
		return ErrBadLocation
	}
	if s.Temperature == nil {
		return ErrNoTemp
	}
	if s.SmokeLevel == nil {
		return ErrNoSmoke
	}
	if s.DeviceID == "" {
		return ErrNoDeviceID
	}
	return nil
}

// Alert builds the durable record. The timestamp is assigned by the caller
// (server time for the primary store).
func (s *AlertSubmission) Alert(id string, ts time.Time) ConfirmedAlert {
	return ConfirmedAlert{
		ID:          id,
		Location:    s.Location,
		Address:     s.Address,
		Temperature: *s.Temperature,
		SmokeLevel:  *s.SmokeLevel,
		DeviceID:    s.DeviceID,
		Timestamp:   ts,
	}
}

// DedupKey is a content-addressed key for idempotent dual writes: re-sending
// the same confirmation hashes to the same key and is written at most once
// per store within the dedup window.
func (s *AlertSubmission) DedupKey() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%v|%v", s.DeviceID, s.Location, s.Address)
	if s.Temperature != nil {
		fmt.Fprintf(h, "|t=%g", *s.Temperature)
	}
	if s.SmokeLevel != nil {
		fmt.Fprintf(h, "|s=%s", s.SmokeLevel.String())
	}
	return hex.EncodeToString(h.Sum(nil))
}
