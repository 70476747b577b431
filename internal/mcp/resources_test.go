package mcp

import (
	"context"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"freeco-signals/internal/domain"
)

func TestResourcesStaticAndTemplated(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, pipeline := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	list, err := session.ListResources(ctx, &sdkmcp.ListResourcesParams{})
	if err != nil {
		t.Fatalf("list resources failed: %v", err)
	}
	if len(list.Resources) != 3 {
		t.Fatalf("expected 3 static resources, got %d", len(list.Resources))
	}

	templates, err := session.ListResourceTemplates(ctx, &sdkmcp.ListResourceTemplatesParams{})
	if err != nil {
		t.Fatalf("list templates failed: %v", err)
	}
	if len(templates.ResourceTemplates) != 1 {
		t.Fatalf("expected 1 resource template, got %d", len(templates.ResourceTemplates))
	}

	readRes, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "signals://latest"})
	if err != nil {
		t.Fatalf("read latest resource failed: %v", err)
	}
	var latest signalsLatestOutput
	if err := decodeResourceJSON(readRes, &latest); err != nil {
		t.Fatalf("decode latest failed: %v", err)
	}
	if !latest.Found || latest.Signal.Provider != "deepseek" {
		t.Fatalf("unexpected latest payload %+v", latest)
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "signals://recent?action=SELL&limit=10"})
	if err != nil {
		t.Fatalf("read recent resource failed: %v", err)
	}
	var out signalsListOutput
	if err := decodeResourceJSON(readRes, &out); err != nil {
		t.Fatalf("decode signal output failed: %v", err)
	}
	if out.Count != len(out.Signals) {
		t.Fatalf("count mismatch: %+v", out)
	}
	if pipeline.lastFilter.Action != domain.ActionSell || pipeline.lastFilter.Limit != 10 {
		t.Fatalf("unexpected filter %+v", pipeline.lastFilter)
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "pipeline://status"})
	if err != nil {
		t.Fatalf("read status resource failed: %v", err)
	}
	var status pipelineStatusOutput
	if err := decodeResourceJSON(readRes, &status); err != nil {
		t.Fatalf("decode status failed: %v", err)
	}
	if status.Status.Pair != "FREECO/CHF" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestUnknownResource(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	if _, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "prices://latest"}); err == nil {
		t.Fatal("expected resource not found error")
	}
}
