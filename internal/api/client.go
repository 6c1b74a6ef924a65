package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"codeberg.org/mutker/vmctl/internal/errors"
	"codeberg.org/mutker/vmctl/internal/logger"
)

const (
	contentType    = "application/vnd.vmware.vmw.rest-v1+json"
	requestTimeout = 10 * time.Second

	// The inventory reports "unknown" when the power endpoint gives
	// nothing usable, matching what the dashboard displays.
	StateUnknown = "unknown"
)

// Power verbs the REST API expects in the PUT body.
var actionVerbs = map[PowerAction]string{
	ActionStart:    "on",
	ActionStop:     "off",
	ActionShutdown: "shutdown",
	ActionSuspend:  "suspend",
}

var vmxNamePattern = regexp.MustCompile(`Virtual Machines[/\\]([^/\\]+)[/\\][^/\\]+\.vmx$`)

type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

type vmEntry struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type powerResponse struct {
	PowerState string `json:"power_state"`
}

type vmDetailsResponse struct {
	ID  string `json:"id"`
	CPU struct {
		Processors int `json:"processors"`
	} `json:"cpu"`
	Memory int `json:"memory"`
}

// NewClient creates a Gateway backed by the VMware Workstation REST API.
func NewClient(baseURL, username, password string) (*Client, error) {
	errFactory := errors.New()

	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, errFactory.New(ErrInvalidBaseURL)
	}

	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: requestTimeout},
	}, nil
}

// ListVMs fetches the inventory and enriches every entry with its power
// state. An entry whose power state cannot be fetched is kept with state
// "unknown" rather than dropped, so a flaky VM stays visible.
func (c *Client) ListVMs(ctx context.Context) ([]VMState, error) {
	var entries []vmEntry
	if err := c.get(ctx, "/vms", &entries); err != nil {
		return nil, err
	}

	vms := make([]VMState, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}

		state, err := c.GetPowerState(ctx, entry.ID)
		if err != nil {
			logger.Warn().Err(err).Str("vm_id", entry.ID).Msg("failed to fetch power state")
			state = StateUnknown
		}

		vms = append(vms, VMState{
			ID:    entry.ID,
			Name:  cleanVMName(entry.Path),
			Path:  entry.Path,
			State: state,
		})
	}

	return vms, nil
}

func (c *Client) GetPowerState(ctx context.Context, vmID string) (string, error) {
	var power powerResponse
	if err := c.get(ctx, "/vms/"+vmID+"/power", &power); err != nil {
		return "", err
	}

	if power.PowerState == "" {
		return StateUnknown, nil
	}

	return power.PowerState, nil
}

func (c *Client) GetVM(ctx context.Context, vmID string) (VMDetails, error) {
	var details vmDetailsResponse
	if err := c.get(ctx, "/vms/"+vmID, &details); err != nil {
		return VMDetails{}, err
	}

	return VMDetails{
		ID:         details.ID,
		Processors: details.CPU.Processors,
		MemoryMB:   details.Memory,
	}, nil
}

// SetPowerState issues the power verb. The API answers 200 with the new
// power state, or 204 for an accepted request with no body; a 204 is
// reported as the action's nominal result and left for the next poll to
// confirm.
func (c *Client) SetPowerState(ctx context.Context, vmID string, action PowerAction) (string, error) {
	errFactory := errors.New()

	verb, ok := actionVerbs[action]
	if !ok {
		return "", errFactory.WithData(ErrInvalidAction, action)
	}

	logger.Debug().
		Str("vm_id", vmID).
		Str("action", action.String()).
		Msgf("PUT /vms/%s/power", vmID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/vms/"+vmID+"/power", strings.NewReader(verb))
	if err != nil {
		return "", errFactory.Wrap(ErrRequestFailed, err)
	}
	c.prepare(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errFactory.Wrap(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var power powerResponse
		if err := json.NewDecoder(resp.Body).Decode(&power); err != nil {
			return "", errFactory.Wrap(ErrDecodeFailed, err)
		}
		return power.PowerState, nil
	case http.StatusNoContent:
		return "", nil
	default:
		return "", newAPIError(resp)
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	errFactory := errors.New()

	logger.Debug().Msgf("GET %s", path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return errFactory.Wrap(ErrRequestFailed, err)
	}
	c.prepare(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return errFactory.Wrap(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errFactory.Wrap(ErrDecodeFailed, err)
	}

	return nil
}

func (c *Client) prepare(req *http.Request) {
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Content-Type", contentType)
}

func newAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	return &APIError{
		Status:  resp.StatusCode,
		Message: strings.TrimSpace(string(body)),
	}
}

// cleanVMName extracts a display name from the .vmx path the inventory
// reports. Falls back to the file name without extension.
func cleanVMName(path string) string {
	if match := vmxNamePattern.FindStringSubmatch(path); match != nil {
		return match[1]
	}

	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}
