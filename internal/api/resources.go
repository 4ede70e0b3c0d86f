package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

// ProbeRealtime checks the backend's realtime capability endpoint. Any 2xx
// response means the event feed is available.
func (c *Client) ProbeRealtime(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ws/info", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

// Status fetches the backend's top-level status summary.
func (c *Client) Status(ctx context.Context) (*HubStatus, error) {
	var s HubStatus
	if err := c.get(ctx, "/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSources returns all registered data sources.
func (c *Client) ListSources(ctx context.Context) ([]Source, error) {
	var out []Source
	if err := c.get(ctx, "/sources", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSource returns one data source by name.
func (c *Client) GetSource(ctx context.Context, name string) (*Source, error) {
	var s Source
	if err := c.get(ctx, "/source/"+url.PathEscape(name), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Dump triggers a dump (download) of a data source.
func (c *Client) Dump(ctx context.Context, name string) error {
	return c.post(ctx, "/source/"+url.PathEscape(name)+"/dump", nil, nil)
}

// Upload triggers an upload (parse + store) of a data source.
func (c *Client) Upload(ctx context.Context, name string) error {
	return c.post(ctx, "/source/"+url.PathEscape(name)+"/upload", nil, nil)
}

// Inspect starts a data inspection of a source. mode is the inspection
// flavor the Hub understands (e.g. "type", "stats").
func (c *Client) Inspect(ctx context.Context, name, mode string) error {
	payload := map[string]string{"mode": mode}
	return c.post(ctx, "/source/"+url.PathEscape(name)+"/inspect", payload, nil)
}

// ListBuilds returns all builds.
func (c *Client) ListBuilds(ctx context.Context) ([]Build, error) {
	var out []Build
	if err := c.get(ctx, "/builds", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBuild returns one build by id.
func (c *Client) GetBuild(ctx context.Context, id string) (*Build, error) {
	var b Build
	if err := c.get(ctx, "/build/"+url.PathEscape(id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBuildConfigs returns all build configurations.
func (c *Client) ListBuildConfigs(ctx context.Context) ([]BuildConfig, error) {
	var out []BuildConfig
	if err := c.get(ctx, "/build_configs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewBuild launches a new build for the given configuration.
func (c *Client) NewBuild(ctx context.Context, conf string) error {
	payload := map[string]string{"conf_name": conf}
	return c.post(ctx, "/build/new", payload, nil)
}

// Diff computes the difference between two builds.
func (c *Client) Diff(ctx context.Context, oldBuild, newBuild string) error {
	payload := map[string]string{"old": oldBuild, "new": newBuild}
	return c.post(ctx, "/diff", payload, nil)
}

// ListIndexes returns the live index environments and their indices.
func (c *Client) ListIndexes(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/indexes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Index creates an index from a build in the given indexer environment.
func (c *Client) Index(ctx context.Context, buildID, env string) error {
	payload := map[string]string{"indexer_env": env}
	return c.post(ctx, "/build/"+url.PathEscape(buildID)+"/index", payload, nil)
}

// Snapshot snapshots a build's index into the given snapshot environment.
func (c *Client) Snapshot(ctx context.Context, buildID, env string) error {
	payload := map[string]string{"snapshot_env": env}
	return c.post(ctx, "/build/"+url.PathEscape(buildID)+"/snapshot", payload, nil)
}

// Publish publishes a build's snapshot through the given publisher
// environment, making it visible as a release.
func (c *Client) Publish(ctx context.Context, buildID, env string) error {
	payload := map[string]string{"publisher_env": env}
	return c.post(ctx, "/build/"+url.PathEscape(buildID)+"/publish", payload, nil)
}

// ListReleases returns published releases.
func (c *Client) ListReleases(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/releases", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCommands returns running and archived Hub commands.
func (c *Client) ListCommands(ctx context.Context) ([]Command, error) {
	var out []Command
	if err := c.get(ctx, "/commands", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCommand returns one command by id.
func (c *Client) GetCommand(ctx context.Context, id string) (*Command, error) {
	var cmd Command
	if err := c.get(ctx, "/command/"+url.PathEscape(id), nil, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// HubConfig fetches the backend's configuration document.
func (c *Client) HubConfig(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/config", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetHubConfig updates one configuration parameter on the backend.
func (c *Client) SetHubConfig(ctx context.Context, key string, value any) error {
	payload := map[string]any{"name": key, "value": value}
	return c.put(ctx, "/config", payload, nil)
}

// GetRaw fetches an arbitrary resource path and returns the raw result
// payload. Watchers use it to re-fetch whatever entity changed.
func (c *Client) GetRaw(ctx context.Context, path string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
