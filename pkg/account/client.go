// Package account is the HTTPS client for the account API: login,
// account-info lookup, and camera-list retrieval. It hands callers the
// model.Account/model.Camera values that runtime.Connect consumes.
package account

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ethan/camiotc/pkg/model"
)

const (
	authBaseURL = "https://auth-prod.api.wyze.com"
	appBaseURL  = "https://api.wyzecam.com"

	appAPIKey   = "WMXHYf79Nr5gIlt3r0r7p9Tcw5bvs6BB4U8O8nGJ"
	appVersion  = "2.19.24"
	scaleUA     = "Wyze/2.19.24 (iPhone; iOS 14.4.2; Scale/3.00)"
	scValue     = "9f275790cab94a72bd206c8876429f3c"
	svValue     = "e1fe392906d54888a9b99b88de4162d7"
)

// Client is the account API client. It is not safe for use before Login
// succeeds: every other method needs the access token Login populates.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	authBaseURL string
	appBaseURL  string

	phoneID     string
	accessToken string
}

// New constructs a Client. phoneID identifies this client install to the
// account API; pass "" to have one generated.
func New(phoneID string, logger *slog.Logger) *Client {
	if phoneID == "" {
		phoneID = uuid.New().String()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		phoneID:     phoneID,
		authBaseURL: authBaseURL,
		appBaseURL:  appBaseURL,
	}
}

// Login authenticates with email/password and caches the resulting access
// token on the Client for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	payload := map[string]string{
		"email":    email,
		"password": triplemd5(password),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("account: marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBaseURL+"/user/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("account: build login request: %w", err)
	}
	c.setHeaders(req, "wyze_ios_"+appVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("account: login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("account: login failed: %s (status %d)", b, resp.StatusCode)
	}

	var loginResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("account: decode login response: %w", err)
	}
	if loginResp.AccessToken == "" {
		return fmt.Errorf("account: login response carried no access_token")
	}

	c.accessToken = loginResp.AccessToken
	c.logger.Info("account login succeeded")
	return nil
}

// GetAccount fetches the caller's account identity, suitable for passing
// to runtime.Connect.
func (c *Client) GetAccount(ctx context.Context) (model.Account, error) {
	var userResp struct {
		Code string `json:"code"`
		Data struct {
			OpenUserID string `json:"open_user_id"`
			Email      string `json:"email"`
			Nickname   string `json:"nickname"`
		} `json:"data"`
	}
	if err := c.post(ctx, c.appBaseURL+"/app/user/get_user_info", scaleUA, nil, &userResp); err != nil {
		return model.Account{}, err
	}
	if userResp.Code != "1" {
		return model.Account{}, fmt.Errorf("account: get_user_info returned code %q", userResp.Code)
	}

	return model.Account{
		PhoneID:    c.phoneID,
		OpenUserID: userResp.Data.OpenUserID,
		Email:      userResp.Data.Email,
		Nickname:   userResp.Data.Nickname,
	}, nil
}

// GetCameraList fetches every camera registered to the account, filtering
// out non-camera devices and any camera descriptor missing a required
// field for the auth handshake.
func (c *Client) GetCameraList(ctx context.Context) ([]model.Camera, error) {
	var homeResp struct {
		Code string `json:"code"`
		Data struct {
			DeviceList []struct {
				ProductType  string `json:"product_type"`
				ProductModel string `json:"product_model"`
				MAC          string `json:"mac"`
				ENR          string `json:"enr"`
				Nickname     string `json:"nickname"`
				TimezoneName string `json:"timezone_name"`
				DeviceParams struct {
					P2PID   string `json:"p2p_id"`
					P2PType int    `json:"p2p_type"`
					IP      string `json:"ip"`
				} `json:"device_params"`
			} `json:"device_list"`
		} `json:"data"`
	}
	if err := c.post(ctx, c.appBaseURL+"/app/v2/home_page/get_object_list", scaleUA, nil, &homeResp); err != nil {
		return nil, err
	}
	if homeResp.Code != "1" {
		return nil, fmt.Errorf("account: get_object_list returned code %q", homeResp.Code)
	}

	cameras := make([]model.Camera, 0, len(homeResp.Data.DeviceList))
	for _, d := range homeResp.Data.DeviceList {
		if d.ProductType != "Camera" {
			continue
		}
		if d.DeviceParams.P2PID == "" || d.DeviceParams.P2PType == 0 || d.DeviceParams.IP == "" ||
			d.ENR == "" || d.MAC == "" || d.ProductModel == "" {
			c.logger.Warn("skipping camera with incomplete descriptor", "mac", d.MAC)
			continue
		}
		cam := model.Camera{
			UID:          d.DeviceParams.P2PID,
			P2PType:      d.DeviceParams.P2PType,
			IP:           d.DeviceParams.IP,
			ENR:          d.ENR,
			MAC:          d.MAC,
			ProductModel: d.ProductModel,
			Nickname:     d.Nickname,
			TimezoneName: d.TimezoneName,
		}
		checksum, err := cam.ValidateMAC()
		if err != nil {
			c.logger.Warn("skipping camera with malformed mac", "mac", d.MAC, "error", err)
			continue
		}
		c.logger.Debug("validated camera descriptor", "mac", d.MAC, "mac_crc8", checksum)
		cameras = append(cameras, cam)
	}

	c.logger.Info("listed cameras", "count", len(cameras))
	return cameras, nil
}

// post issues an authenticated POST against the app API, merging the
// standard signed payload fields with any extra fields the caller supplies.
func (c *Client) post(ctx context.Context, url, userAgent string, extra map[string]any, out any) error {
	payload := map[string]any{
		"sc":                scValue,
		"sv":                svValue,
		"app_ver":           "com.hualai.WyzeCam___" + appVersion,
		"app_version":       appVersion,
		"app_name":          "com.hualai.WyzeCam",
		"phone_system_type": "1",
		"ts":                time.Now().UnixMilli(),
		"access_token":      c.accessToken,
		"phone_id":          c.phoneID,
	}
	for k, v := range extra {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("account: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("account: build request: %w", err)
	}
	c.setHeaders(req, userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("account: request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("account: %s failed: %s (status %d)", url, b, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("account: decode response from %s: %w", url, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, userAgent string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", appAPIKey)
	req.Header.Set("Phone-Id", c.phoneID)
	req.Header.Set("User-Agent", userAgent)
}

// triplemd5 runs MD5 three times over the password, matching the account
// API's password hashing scheme.
func triplemd5(password string) string {
	encoded := password
	for i := 0; i < 3; i++ {
		sum := md5.Sum([]byte(encoded))
		encoded = hex.EncodeToString(sum[:])
	}
	return encoded
}
