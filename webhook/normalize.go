package webhook

import (
	"encoding/json"
	"strings"
	"time"

	"hookboard/pkg/storage"

	"github.com/google/uuid"
)

const unknownAuthor = "Unknown"

// Typed views of the upstream payloads, holding only the fields the
// normalizer consumes. Anything else in the delivery is ignored here; the
// generic path stores payloads whole.
type pushPayload struct {
	Ref    string `json:"ref"`
	Pusher struct {
		Name string `json:"name"`
	} `json:"pusher"`
	HeadCommit struct {
		Author struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"head_commit"`
}

type pullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Merged bool `json:"merged"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
		MergedBy *struct {
			Login string `json:"login"`
		} `json:"merged_by"`
		Head struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
}

// NormalizeGitHubEvent maps a GitHub delivery onto the canonical stored
// record. The event type comes from the transport header, the inner action
// from the payload. A nil record with a nil error means the delivery is
// deliberately dropped (unhandled event type or uninteresting inner action);
// ingestion still succeeds for those.
//
// Every emitted record gets a fresh ID and the current time; timestamps in
// the upstream payload are ignored.
func NormalizeGitHubEvent(eventType string, body []byte, deliveryID string) (*storage.GitHubEventRecord, error) {
	switch eventType {
	case "push":
		var payload pushPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		return normalizePush(payload, deliveryID), nil
	case "pull_request":
		var payload pullRequestPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		return normalizePullRequest(payload, deliveryID), nil
	default:
		return nil, nil
	}
}

func normalizePush(payload pushPayload, deliveryID string) *storage.GitHubEventRecord {
	author := payload.Pusher.Name
	if author == "" {
		author = payload.HeadCommit.Author.Name
	}
	if author == "" {
		author = unknownAuthor
	}

	branch := strings.TrimPrefix(payload.Ref, "refs/heads/")

	return &storage.GitHubEventRecord{
		ID:         uuid.NewString(),
		Action:     storage.ActionPush,
		Author:     author,
		FromBranch: nil,
		ToBranch:   branch,
		Timestamp:  time.Now().UTC(),
		RequestID:  deliveryID,
	}
}

func normalizePullRequest(payload pullRequestPayload, deliveryID string) *storage.GitHubEventRecord {
	pr := payload.PullRequest

	fromBranch := orUnknown(pr.Head.Ref)
	toBranch := orUnknown(pr.Base.Ref)

	switch {
	case payload.Action == "opened" || payload.Action == "synchronize":
		return &storage.GitHubEventRecord{
			ID:         uuid.NewString(),
			Action:     storage.ActionPullRequest,
			Author:     orUnknown(pr.User.Login),
			FromBranch: &fromBranch,
			ToBranch:   toBranch,
			Timestamp:  time.Now().UTC(),
			RequestID:  deliveryID,
		}
	case payload.Action == "closed" && pr.Merged:
		author := ""
		if pr.MergedBy != nil {
			author = pr.MergedBy.Login
		}
		if author == "" {
			author = pr.User.Login
		}
		return &storage.GitHubEventRecord{
			ID:         uuid.NewString(),
			Action:     storage.ActionMerge,
			Author:     orUnknown(author),
			FromBranch: &fromBranch,
			ToBranch:   toBranch,
			Timestamp:  time.Now().UTC(),
			RequestID:  deliveryID,
		}
	default:
		// Other inner actions (labeled, assigned, review
		// requested, ...) are not tracked.
		return nil
	}
}

func orUnknown(value string) string {
	if value == "" {
		return unknownAuthor
	}
	return value
}
