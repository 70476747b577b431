package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const generateToolName = "signals_generate"

func registerTools(server *mcp.Server, pipeline SignalPipeline) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_list",
		Description: "List recently published AI trading signals, newest first, optionally filtered by action",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in signalsListInput) (*mcp.CallToolResult, signalsListOutput, error) {
		if pipeline == nil {
			return nil, signalsListOutput{}, fmt.Errorf("signal service unavailable")
		}
		filter, err := normalizeSignalFilter(in)
		if err != nil {
			return nil, signalsListOutput{}, err
		}
		result, err := pipeline.ListSignals(ctx, filter)
		if err != nil {
			return nil, signalsListOutput{}, err
		}
		return nil, signalsListOutput{Signals: result, Count: len(result)}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_latest",
		Description: "Get the most recently published signal",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ signalsLatestInput) (*mcp.CallToolResult, signalsLatestOutput, error) {
		if pipeline == nil {
			return nil, signalsLatestOutput{}, fmt.Errorf("signal service unavailable")
		}
		rec, ok, err := pipeline.LatestSignal(ctx)
		if err != nil {
			return nil, signalsLatestOutput{}, err
		}
		if !ok {
			return nil, signalsLatestOutput{}, nil
		}
		return nil, signalsLatestOutput{Found: true, Signal: &rec}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "market_snapshot",
		Description: "Read the current market snapshot for the configured trading pair",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ marketSnapshotInput) (*mcp.CallToolResult, marketSnapshotOutput, error) {
		if pipeline == nil {
			return nil, marketSnapshotOutput{}, fmt.Errorf("signal service unavailable")
		}
		return nil, marketSnapshotOutput{Snapshot: pipeline.Snapshot(ctx)}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        generateToolName,
		Description: "Run one analysis cycle now and publish its signal; fails if a cycle is already running",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ signalsGenerateInput) (*mcp.CallToolResult, signalsGenerateOutput, error) {
		if pipeline == nil {
			return nil, signalsGenerateOutput{}, fmt.Errorf("signal service unavailable")
		}
		rec, err := pipeline.RunCycle(ctx)
		if err != nil {
			return nil, signalsGenerateOutput{}, err
		}
		return nil, signalsGenerateOutput{Signal: rec}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_status",
		Description: "Report pair, topic, providers, sinks and cycle counters",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ pipelineStatusInput) (*mcp.CallToolResult, pipelineStatusOutput, error) {
		if pipeline == nil {
			return nil, pipelineStatusOutput{}, fmt.Errorf("signal service unavailable")
		}
		return nil, pipelineStatusOutput{Status: pipeline.Status()}, nil
	})
}
