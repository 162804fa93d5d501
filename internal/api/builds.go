package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/TheSmartAz/zaoya-sub000/internal/model"
)

// StartBuild asks the server to begin executing an approved plan and returns
// the new build id.
func (c *Client) StartBuild(ctx context.Context, projectID string, pages []model.PlannedPage) (string, error) {
	payload := map[string]any{
		"pages": pages,
	}
	var response struct {
		BuildID string `json:"build_id"`
	}
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/builds"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, payload, &response); err != nil {
		return "", err
	}
	if strings.TrimSpace(response.BuildID) == "" {
		return "", errMissingField("build_id")
	}
	return response.BuildID, nil
}

// GetSession fetches the durable session snapshot for a build.
func (c *Client) GetSession(ctx context.Context, buildID string) (*model.BuildSession, error) {
	var response struct {
		Session model.BuildSession `json:"session"`
	}
	path := "/api/v1/builds/" + url.PathEscape(buildID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return nil, err
	}
	return &response.Session, nil
}

// StepBuild advances a build by one increment outside the push-stream path
// and returns the resulting session snapshot.
func (c *Client) StepBuild(ctx context.Context, buildID, userMessage string) (*model.BuildSession, error) {
	payload := map[string]any{}
	if strings.TrimSpace(userMessage) != "" {
		payload["message"] = userMessage
	}
	var response struct {
		Session model.BuildSession `json:"session"`
	}
	path := "/api/v1/builds/" + url.PathEscape(buildID) + "/step"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, payload, &response); err != nil {
		return nil, err
	}
	return &response.Session, nil
}

// AbortBuild stops the server pipeline and returns the authoritative
// terminal session state.
func (c *Client) AbortBuild(ctx context.Context, buildID string) (*model.BuildSession, error) {
	var response struct {
		Session model.BuildSession `json:"session"`
	}
	path := "/api/v1/builds/" + url.PathEscape(buildID) + "/abort"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil, &response); err != nil {
		return nil, err
	}
	return &response.Session, nil
}
