package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/TheSmartAz/zaoya-sub000/internal/model"
)

func errMissingField(name string) error {
	return errors.New("server response missing " + name)
}

// VersionList is the server's version listing for a project.
type VersionList struct {
	Versions []model.VersionSummary `json:"versions"`
	Quota    model.VersionQuota     `json:"quota"`
}

// ListVersions fetches the version list, optionally filtered to one branch.
// An empty branchID means all branches.
func (c *Client) ListVersions(ctx context.Context, projectID, branchID string) (*VersionList, error) {
	query := map[string]string{}
	if strings.TrimSpace(branchID) != "" {
		query["branch_id"] = strings.TrimSpace(branchID)
	}
	var response VersionList
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/versions"
	if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetVersion fetches a version's page-level contents on demand.
func (c *Client) GetVersion(ctx context.Context, projectID, versionID string) (*model.VersionDetail, error) {
	var response struct {
		Version model.VersionDetail `json:"version"`
	}
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/versions/" + url.PathEscape(versionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return nil, err
	}
	return &response.Version, nil
}

// PinVersion toggles a version's pin flag and returns the updated summary.
func (c *Client) PinVersion(ctx context.Context, projectID, versionID string, pin bool) (*model.VersionSummary, error) {
	payload := map[string]any{"pinned": pin}
	var response struct {
		Version model.VersionSummary `json:"version"`
	}
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/versions/" + url.PathEscape(versionID) + "/pin"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, payload, &response); err != nil {
		return nil, err
	}
	return &response.Version, nil
}

// RollbackPages rolls back only the named pages to their content at the
// given version. The server answers with the new version created on top;
// history is additive, never rewritten.
func (c *Client) RollbackPages(ctx context.Context, projectID, versionID string, pageIDs []string) (*model.VersionSummary, error) {
	payload := map[string]any{"page_ids": pageIDs}
	var response struct {
		Version model.VersionSummary `json:"version"`
	}
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/versions/" + url.PathEscape(versionID) + "/rollback"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, payload, &response); err != nil {
		return nil, err
	}
	return &response.Version, nil
}

// RestoreVersion restores the whole project to a version by creating a new
// version on top of it.
func (c *Client) RestoreVersion(ctx context.Context, projectID, versionID string) (*model.VersionSummary, error) {
	var response struct {
		Version model.VersionSummary `json:"version"`
	}
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/versions/" + url.PathEscape(versionID) + "/restore"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil, &response); err != nil {
		return nil, err
	}
	return &response.Version, nil
}

// ListBranches fetches all branches of a project.
func (c *Client) ListBranches(ctx context.Context, projectID string) ([]model.Branch, error) {
	var response struct {
		Branches []model.Branch `json:"branches"`
	}
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/branches"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Branches, nil
}

// CreateBranch creates a branch rooted at fromVersionID.
func (c *Client) CreateBranch(ctx context.Context, projectID, fromVersionID, name string) (*model.Branch, error) {
	payload := map[string]any{
		"name":            name,
		"from_version_id": fromVersionID,
	}
	var response struct {
		Branch model.Branch `json:"branch"`
	}
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/branches"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, payload, &response); err != nil {
		return nil, err
	}
	return &response.Branch, nil
}

// ActivateBranch makes a branch the project's active branch.
func (c *Client) ActivateBranch(ctx context.Context, projectID, branchID string) error {
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/branches/" + url.PathEscape(branchID) + "/activate"
	return c.doJSON(ctx, http.MethodPost, path, nil, nil, nil)
}
