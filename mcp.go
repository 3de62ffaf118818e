package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	_ "embed"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"k5ktool/bank"
	"k5ktool/generator"
)

func runMCP(cfg Config) {

	s := server.NewMCPServer(
		"K5000 MCP",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	docTool := mcp.NewTool("k5000_describe-format",
		mcp.WithDescription("Returns the description of the Kawai K5000 bank, patch and SysEx formats and the JSON schema of a patch descriptor."),
	)

	s.AddTool(docTool, docToolHandler)

	listBankTool := mcp.NewTool("k5000_list-bank",
		mcp.WithDescription("Lists the used slots of a K5000 bank file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the bank file.")),
	)
	s.AddTool(listBankTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp]Handling list bank request.")

		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		b, err := readBank(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		asJson, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal bank to JSON: %v", err)
		}

		return mcp.NewToolResultText(string(asJson)), nil
	})

	getPatchTool := mcp.NewTool("k5000_get-patch",
		mcp.WithDescription("Decodes a patch from a bank file, a SysEx file or a single patch file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file.")),
		mcp.WithNumber("slot", mcp.Required(), mcp.Description("The slot of the patch (1-128). Single patch files hold slot 1.")),
	)
	s.AddTool(getPatchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp]Handling get patch request.")

		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		slot, err := request.RequireInt("slot")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if slot < 1 || slot > bank.NumPatches {
			return mcp.NewToolResultError(fmt.Sprintf("slot must be in range 1–128, got %d", slot)), nil
		}

		patches, err := loadPatches(cfg, path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		np, err := selectPatch(patches, slot-1)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		asJson, err := json.MarshalIndent(&np.Patch, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal patch to JSON: %v", err)
		}

		return mcp.NewToolResultText(string(asJson)), nil
	})

	generateTool := mcp.NewTool("k5000_generate-patch",
		mcp.WithDescription("Generates a single patch from a patch descriptor and optionally writes it as a SysEx one-patch dump."),
		mcp.WithString("descriptor-json", mcp.Required(), mcp.Description("The patch descriptor in JSON format. See k5000_describe-format for its schema.")),
		mcp.WithString("output", mcp.Description("Path of the .syx file to write. Nothing is written when empty.")),
		mcp.WithNumber("slot", mcp.Description("The slot written into the dump header (1-128, default 1).")),
	)
	s.AddTool(generateTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp]Handling generate patch request.")

		descJson, err := request.RequireString("descriptor-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		output := request.GetString("output", "")
		slot := request.GetInt("slot", 1)
		if slot < 1 || slot > bank.NumPatches {
			return mcp.NewToolResultError(fmt.Sprintf("slot must be in range 1–128, got %d", slot)), nil
		}

		d, err := generator.ParseDescriptor([]byte(descJson))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ts, err := cfg.templates()
		if err != nil {
			return nil, fmt.Errorf("failed to load templates: %v", err)
		}
		p, err := generator.Generate(d, ts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if output != "" {
			output = cfg.outputPath(output)
			log.Println("[mcp] Writing patch", p.Common.Name, "to", output)
			if err := writeOneDump(cfg, output, slot-1, &p); err != nil {
				return nil, fmt.Errorf("failed to write patch: %v", err)
			}
		}

		asJson, err := json.MarshalIndent(&p, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal patch to JSON: %v", err)
		}

		return mcp.NewToolResultText(string(asJson)), nil
	})

	log.Println("Starting K5000 MCP server...")

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}

}

//go:embed k5000_format.txt
var formatDoc string

func descriptorSchema() (string, error) {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	schema := r.Reflect(&generator.SinglePatchDescriptor{})
	asJson, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(asJson), nil
}

func docToolHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp]Handling format documentation request.")

	schema, err := descriptorSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to build descriptor schema: %v", err)
	}

	return mcp.NewToolResultText(formatDoc + "\nPatch descriptor JSON schema:\n" + schema + "\n"), nil
}
