package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, pipeline SignalPipeline) {
	server.AddResource(&mcp.Resource{
		URI:         "signals://latest",
		Name:        "signals-latest",
		Description: "Most recently published signal",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if pipeline == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}
		rec, ok, err := pipeline.LatestSignal(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return jsonResource(req.Params.URI, signalsLatestOutput{})
		}
		return jsonResource(req.Params.URI, signalsLatestOutput{Found: true, Signal: &rec})
	})

	server.AddResource(&mcp.Resource{
		URI:         "market://snapshot",
		Name:        "market-snapshot",
		Description: "Current market snapshot for the configured trading pair",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if pipeline == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}
		return jsonResource(req.Params.URI, marketSnapshotOutput{Snapshot: pipeline.Snapshot(ctx)})
	})

	server.AddResource(&mcp.Resource{
		URI:         "pipeline://status",
		Name:        "pipeline-status",
		Description: "Signal pipeline configuration and cycle counters",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if pipeline == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}
		return jsonResource(req.Params.URI, pipelineStatusOutput{Status: pipeline.Status()})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "signals://recent{?action,limit}",
		Name:        "signals-recent",
		Description: "Recent published signals with optional action/limit query params",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if pipeline == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "signals" || parsed.Host != "recent" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		input := signalsListInput{Action: parsed.Query().Get("action")}
		if rawLimit := strings.TrimSpace(parsed.Query().Get("limit")); rawLimit != "" {
			n, err := strconv.Atoi(rawLimit)
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %s", rawLimit)
			}
			input.Limit = n
		}

		filter, err := normalizeSignalFilter(input)
		if err != nil {
			return nil, err
		}
		list, err := pipeline.ListSignals(ctx, filter)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, signalsListOutput{Signals: list, Count: len(list)})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
