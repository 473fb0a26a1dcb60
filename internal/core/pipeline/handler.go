package pipeline

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"textbridge/internal/core/job"
)

type Handler struct {
	jobs *job.Service
	svc  *Service
}

func NewHandler(jobs *job.Service, svc *Service) *Handler {
	return &Handler{jobs: jobs, svc: svc}
}

// CreateRequest is the inbound HTTP shape: platform URLs, a target
// language and optional comma-separated notification addresses.
type CreateRequest struct {
	SourceURL       string `json:"source_url"`
	DestinationURL  string `json:"destination_url"`
	Language        string `json:"language"`
	NotifyAddresses string `json:"notify_addresses"`
}

func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}
	srcLib, srcPath, err := ParseLibraryURL(req.SourceURL)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "source_url: " + err.Error()})
	}
	dstLib, dstPath, err := ParseLibraryURL(req.DestinationURL)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "destination_url: " + err.Error()})
	}
	r := Request{
		Lib:         srcLib,
		Path:        srcPath,
		TargetLib:   dstLib,
		TargetPath:  dstPath,
		Language:    req.Language,
		NotifyAddrs: splitAddrs(req.NotifyAddresses),
	}
	if err := Validate(r); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	id, err := h.svc.Enqueue(c.Context(), r)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "job_id": id})
}

func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("jobId")
	j, err := h.jobs.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "not_found"})
	}
	return c.JSON(fiber.Map{"success": true, "job": j})
}

// CompletionEvent is the external job-completed notification. Only the job
// id is consumed; everything else about the job is re-derived from its own
// manifest during correlation.
type CompletionEvent struct {
	JobID string `json:"job_id"`
}

func (h *Handler) HandleEvent(c *fiber.Ctx) error {
	var ev CompletionEvent
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}
	if err := h.svc.EnqueueCompletion(c.Context(), ev.JobID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}

// ParseLibraryURL splits a platform page URL into its library identifier
// (the first host label) and platform-relative path.
func ParseLibraryURL(raw string) (lib, path string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("unparseable URL")
	}
	host := u.Hostname()
	dot := strings.Index(host, ".")
	if u.Scheme == "" || dot <= 0 {
		return "", "", fmt.Errorf("expected https://<lib>.<domain>/<path>")
	}
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return "", "", fmt.Errorf("missing page path")
	}
	return host[:dot], p, nil
}

func splitAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}
