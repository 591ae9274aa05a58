package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"news_ingest/internal/domain"
)

func newCategoriesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage news categories and their aliases",
	}

	cmd.AddCommand(
		newCategoriesListCommand(a),
		newCategoriesCreateCommand(a),
		newCategoriesAliasCommand(a),
		newCategoriesFindCommand(a),
		newCategoriesSeedCommand(a),
	)

	return cmd
}

func newCategoriesListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with their news counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.categoryService(cmd.Context())
			if err != nil {
				return err
			}

			categories, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "Slug", "Color", "Order", "Active", "News", "Aliases"})
			for _, c := range categories {
				t.AppendRow(table.Row{c.ID, c.Name, c.Slug, c.Color, c.SortOrder, c.IsActive, c.NewsCount, strings.Join(c.Aliases, ", ")})
			}
			t.Render()
			return nil
		},
	}
}

func newCategoriesCreateCommand(a *app) *cobra.Command {
	var (
		color   string
		aliases []string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.categoryService(cmd.Context())
			if err != nil {
				return err
			}

			c, err := svc.Create(cmd.Context(), args[0], color, aliases)
			if err != nil {
				return err
			}

			printCategory(c)
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "hex color, picked from the palette when empty")
	cmd.Flags().StringSliceVar(&aliases, "alias", nil, "additional aliases")

	return cmd
}

func newCategoriesAliasCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "alias <category> <alias>",
		Short: "Add an alias to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.categoryService(cmd.Context())
			if err != nil {
				return err
			}

			c, added, err := svc.AddAliasByName(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if added {
				fmt.Printf("Alias %q added to %s.\n", domain.NormalizeAlias(args[1]), c.Name)
			} else {
				fmt.Printf("%s already has alias %q.\n", c.Name, domain.NormalizeAlias(args[1]))
			}
			return nil
		},
	}
}

func newCategoriesFindCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <term>",
		Short: "Show the category a label resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.categoryService(cmd.Context())
			if err != nil {
				return err
			}

			c, err := svc.Find(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrNotFound) {
				fallback, err := svc.Default(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("No category matches %q; items would fall back to %s.\n", args[0], fallback.Name)
				return nil
			}
			if err != nil {
				return err
			}

			printCategory(c)
			return nil
		},
	}
}

func newCategoriesSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create or refresh the default categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.categoryService(cmd.Context())
			if err != nil {
				return err
			}

			created, updated, err := svc.Seed(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Seeded categories: %d created, %d updated.\n", created, updated)
			return nil
		},
	}
}

func printCategory(c *domain.Category) {
	fmt.Printf("ID:      %d\n", c.ID)
	fmt.Printf("Name:    %s\n", c.Name)
	fmt.Printf("Slug:    %s\n", c.Slug)
	fmt.Printf("Color:   %s\n", c.Color)
	fmt.Printf("Order:   %d\n", c.SortOrder)
	fmt.Printf("Aliases: %s\n", strings.Join(c.Aliases, ", "))
}
