package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/scaffold"
	"github.com/jingkaihe/skillkit/pkg/skills"
)

// InitConfig holds configuration for the init command
type InitConfig struct {
	Path         string
	Description  string
	License      string
	Resources    []string
	AllowedTools []string
}

// NewInitConfig creates a new InitConfig with default values
func NewInitConfig() *InitConfig {
	return &InitConfig{
		Path: ".",
	}
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new skill directory",
		Long: `Create a new skill directory named <name> containing a SKILL.md that passes
validation. The name must be lowercase letters, digits and single hyphens.

Examples:
  skillkit init pdf-tools
  skillkit init pdf-tools --path ./skills --resources
  skillkit init pdf-tools --resources=scripts --license MIT`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0], getInitConfigFromFlags(cmd))
		},
	}

	defaults := NewInitConfig()
	cmd.Flags().String("path", defaults.Path, "Parent directory for the new skill")
	cmd.Flags().String("description", defaults.Description, "Skill description (generated when empty)")
	cmd.Flags().String("license", defaults.License, "License identifier")
	cmd.Flags().StringSlice("resources", defaults.Resources, "Resource directories to create; bare flag creates all of "+fmt.Sprint(skills.ResourceDirs))
	cmd.Flags().Lookup("resources").NoOptDefVal = "assets,references,scripts"
	cmd.Flags().StringSlice("allowed-tools", defaults.AllowedTools, "Tools the skill may use without asking")
	return cmd
}

func getInitConfigFromFlags(cmd *cobra.Command) *InitConfig {
	config := NewInitConfig()
	if path, err := cmd.Flags().GetString("path"); err == nil {
		config.Path = path
	}
	if description, err := cmd.Flags().GetString("description"); err == nil {
		config.Description = description
	}
	if license, err := cmd.Flags().GetString("license"); err == nil {
		config.License = license
	}
	if resources, err := cmd.Flags().GetStringSlice("resources"); err == nil {
		config.Resources = resources
	}
	if tools, err := cmd.Flags().GetStringSlice("allowed-tools"); err == nil {
		config.AllowedTools = tools
	}
	return config
}

func runInit(cmd *cobra.Command, name string, config *InitConfig) error {
	p := newPresenter(cmd)

	opts := []scaffold.Option{
		scaffold.WithDescription(config.Description),
		scaffold.WithLicense(config.License),
		scaffold.WithResourceDirs(config.Resources...),
	}
	if len(config.AllowedTools) > 0 {
		opts = append(opts, scaffold.WithAllowedTools(config.AllowedTools...))
	}

	path, err := scaffold.Create(cmd.Context(), name, config.Path, opts...)
	if err != nil {
		p.Error(err, "Failed to create skill")
		return reportedExit(err)
	}

	p.Success(fmt.Sprintf("Created skill %s at %s", name, path))
	p.Info(fmt.Sprintf("Edit %s, then run 'skillkit validate %s'", skills.DescriptorFileName, path))
	return nil
}
