package mobile_client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPHost is the address a sensor exposes while in access-point
// provisioning mode.
const DefaultAPHost = "192.168.4.1"

// PairRequest carries the WiFi credentials and display name handed to a
// sensor during provisioning.
type PairRequest struct {
	APHost     string
	SSID       string
	Password   string
	DeviceName string
}

type pairResponse struct {
	DeviceID string `json:"deviceId"`
}

// Pair sends the credentials to the sensor's provisioning endpoint as a
// form POST and returns the device id the sensor reports.
func Pair(ctx context.Context, hc *http.Client, req PairRequest) (string, error) {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	host := req.APHost
	if host == "" {
		host = DefaultAPHost
	}
	if req.SSID == "" {
		return "", fmt.Errorf("ssid required")
	}

	form := url.Values{}
	form.Set("ssid", req.SSID)
	form.Set("password", req.Password)
	form.Set("deviceName", req.DeviceName)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"http://"+host+"/config", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("pairing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pairing rejected: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var pr pairResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", fmt.Errorf("pairing response: %w", err)
	}
	if pr.DeviceID == "" {
		return "", fmt.Errorf("pairing response missing deviceId")
	}
	return pr.DeviceID, nil
}
