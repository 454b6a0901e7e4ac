package notion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/daniltm/prodbot/internal/pipeline"
)

// sphereSelectValue marks the pages inside a category database that count
// as selectable spheres (the "2 уровень" rows of the user's hierarchy).
const sphereSelectValue = "2 уровень"

// thoughtStatus is the fixed status every thought page is created with.
const thoughtStatus = "помыслитьChatGPT"

type richText struct {
	PlainText string `json:"plain_text"`
}

type pageProperty struct {
	Title    []richText `json:"title"`
	RichText []richText `json:"rich_text"`
}

type queryPage struct {
	ID         string                  `json:"id"`
	Properties map[string]pageProperty `json:"properties"`
}

type queryResponse struct {
	Results []queryPage `json:"results"`
}

// ListSphereOptions queries the user's category database and returns the
// selectable sphere targets: page id, display name and description.
func (c *Client) ListSphereOptions(ctx context.Context, databaseID string) ([]pipeline.SphereOption, error) {
	body := map[string]any{
		"filter": map[string]any{
			"property": "Select",
			"select":   map[string]any{"equals": sphereSelectValue},
		},
		"page_size": 100,
	}

	var resp queryResponse
	if err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", body, &resp); err != nil {
		return nil, fmt.Errorf("query sphere options: %w", err)
	}

	opts := make([]pipeline.SphereOption, 0, len(resp.Results))
	for _, page := range resp.Results {
		name := page.Properties["Name"]
		if len(name.Title) == 0 {
			continue
		}
		opt := pipeline.SphereOption{ID: page.ID, Name: name.Title[0].PlainText}
		if descr := page.Properties["Description"]; len(descr.RichText) > 0 {
			opt.Description = descr.RichText[0].PlainText
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

// CreateTask creates one task page in the user's main database. Optional
// fields are omitted from the property map rather than written empty.
func (c *Client) CreateTask(ctx context.Context, databaseID string, task pipeline.MergedTask) error {
	props := map[string]any{
		"Name": titleProp(task.Name),
	}
	if task.SphereText != "" {
		props["Sphere_text"] = richTextProp(task.SphereText)
	}
	if task.StartDatetime != "" {
		props["Start Date"] = dateProp(task.StartDatetime)
	}
	if task.EndDatetime != "" {
		props["End Date"] = dateProp(task.EndDatetime)
	}
	if task.Type != "" {
		props["type"] = map[string]any{"status": map[string]any{"name": task.Type}}
	}
	if task.Project != "" {
		props["Project"] = richTextProp(task.Project)
	}
	if task.ChatGPTComment != "" {
		props["ChatGPT_comment"] = richTextProp(task.ChatGPTComment)
	}
	if task.CSAT != nil {
		props["csat"] = map[string]any{"number": *task.CSAT}
	}
	if task.SpherePageID != "" {
		props["Sphere"] = relationProp(task.SpherePageID)
	}

	body := map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": props,
	}
	if err := c.do(ctx, http.MethodPost, "/pages", body, nil); err != nil {
		return fmt.Errorf("create task page: %w", err)
	}
	return nil
}

// CreateThought creates one thought page with a fixed status and the full
// original raw text attached as a paragraph block, so the context the short
// name/comment pair loses stays recoverable.
func (c *Client) CreateThought(ctx context.Context, databaseID string, thought pipeline.Thought, rawText string, now time.Time) error {
	props := map[string]any{
		"Name":   titleProp(thought.Name),
		"Date":   dateProp(now.Format("2006-01-02T15:04:05-07:00")),
		"Status": map[string]any{"status": map[string]any{"name": thoughtStatus}},
	}
	if thought.SpherePageID != "" {
		props["Sphere"] = relationProp(thought.SpherePageID)
	} else if thought.SphereText != "" {
		props["Sphere"] = richTextProp(thought.SphereText)
	}

	body := map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": props,
		"children": []any{
			map[string]any{
				"object": "block",
				"type":   "paragraph",
				"paragraph": map[string]any{
					"rich_text": []any{
						map[string]any{"type": "text", "text": map[string]any{"content": rawText}},
					},
				},
			},
		},
	}
	if err := c.do(ctx, http.MethodPost, "/pages", body, nil); err != nil {
		return fmt.Errorf("create thought page: %w", err)
	}
	return nil
}

// ValidateToken checks the integration token by requesting the bot user.
func (c *Client) ValidateToken(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/users/me", nil, nil)
}

type databaseResponse struct {
	Properties map[string]any `json:"properties"`
}

// taskDatabaseProps are the columns the main task database must carry.
var taskDatabaseProps = []string{"Name", "Sphere", "Start Date", "End Date", "type", "Project", "ChatGPT_comment"}

// ValidateTaskDatabase checks the main database exists and carries the
// required property set.
func (c *Client) ValidateTaskDatabase(ctx context.Context, databaseID string) error {
	var resp databaseResponse
	if err := c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil, &resp); err != nil {
		return err
	}
	for _, p := range taskDatabaseProps {
		if _, ok := resp.Properties[p]; !ok {
			return fmt.Errorf("database %s is missing property %q", databaseID, p)
		}
	}
	return nil
}

// thoughtDatabaseProps are the columns the thoughts database must carry.
var thoughtDatabaseProps = []string{"Name", "Date", "Status"}

// ValidateThoughtsDatabase checks the thoughts database exists and carries
// the property set thought pages are written with.
func (c *Client) ValidateThoughtsDatabase(ctx context.Context, databaseID string) error {
	var resp databaseResponse
	if err := c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil, &resp); err != nil {
		return err
	}
	for _, p := range thoughtDatabaseProps {
		if _, ok := resp.Properties[p]; !ok {
			return fmt.Errorf("database %s is missing property %q", databaseID, p)
		}
	}
	return nil
}

// ValidateSphereDatabase checks a category database has a Description field.
func (c *Client) ValidateSphereDatabase(ctx context.Context, databaseID string) error {
	var resp databaseResponse
	if err := c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil, &resp); err != nil {
		return err
	}
	if _, ok := resp.Properties["Description"]; !ok {
		return fmt.Errorf("database %s is missing property %q", databaseID, "Description")
	}
	return nil
}

func titleProp(content string) map[string]any {
	return map[string]any{"title": []any{map[string]any{"text": map[string]any{"content": content}}}}
}

func richTextProp(content string) map[string]any {
	return map[string]any{"rich_text": []any{map[string]any{"text": map[string]any{"content": content}}}}
}

func dateProp(iso string) map[string]any {
	return map[string]any{"date": map[string]any{"start": iso}}
}

func relationProp(pageID string) map[string]any {
	return map[string]any{"relation": []any{map[string]any{"id": pageID}}}
}
