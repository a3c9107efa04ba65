package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"livecatalog/internal/store"
)

func newProductsCommand(ctx *commandContext) *cobra.Command {
	productsCmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Create and inspect catalog products",
	}
	productsCmd.AddCommand(newProductsCreateCommand(ctx))
	productsCmd.AddCommand(newProductsShowCommand(ctx))
	productsCmd.AddCommand(newProductsListCommand(ctx))
	productsCmd.AddCommand(newProductsPublishCommand(ctx))
	return productsCmd
}

func newProductsCreateCommand(ctx *commandContext) *cobra.Command {
	var draft store.Product
	var tags string
	cmd := &cobra.Command{
		Use:     "create <frame-id>",
		Aliases: []string{"create-from-frame"},
		Short:   "Create a product from a frame's image",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(draft.Name) == "" {
				return errors.New("--name is required")
			}
			draft.Tags = splitTags(tags)
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				product, err := st.CreateProductFromFrame(cmd.Context(), args[0], draft)
				switch {
				case store.IsLinkPending(err):
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\nRun `livecatalog db reconcile` to repair the frame link.\n", err)
				case err != nil:
					return err
				}
				return ctx.emit(cmd, product, func() string { return productTable(*product) })
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&draft.Name, "name", "", "Product name")
	flags.StringVar(&draft.Description, "description", "", "Product description")
	flags.Float64Var(&draft.Price, "price", 0, "Price")
	flags.StringVar(&draft.Category, "category", "", "Category")
	flags.IntVar(&draft.Inventory, "inventory", 0, "Units in stock")
	flags.StringVar(&draft.VendorID, "vendor", "", "Vendor id")
	flags.StringVar(&tags, "tags", "", "Comma separated tags")
	return cmd
}

func newProductsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <product-id>",
		Short: "Show a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				product, err := lookupProduct(cmd, st, args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, product, func() string { return productTable(*product) })
			})
		},
	}
}

func newProductsListCommand(ctx *commandContext) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally those reachable from one session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				var (
					products []store.Product
					err      error
				)
				if sessionID != "" {
					products, err = st.SessionProducts(cmd.Context(), sessionID)
				} else {
					products, err = store.GetAll[store.Product](cmd.Context(), st, store.CollectionProducts)
				}
				if err != nil {
					return err
				}
				return ctx.emit(cmd, products, func() string {
					if len(products) == 0 {
						return "No products"
					}
					return productsTable(products)
				})
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Only products reachable from this session")
	return cmd
}

func newProductsPublishCommand(ctx *commandContext) *cobra.Command {
	var unpublish bool
	cmd := &cobra.Command{
		Use:   "publish <product-id>",
		Short: "Mark a product published",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				product, err := lookupProduct(cmd, st, args[0])
				if err != nil {
					return err
				}
				product.IsPublished = !unpublish
				if err := st.SaveProduct(cmd.Context(), product); err != nil {
					return err
				}
				verb := "Published"
				if unpublish {
					verb = "Unpublished"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, product.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unpublish, "undo", false, "Unpublish instead")
	return cmd
}

func lookupProduct(cmd *cobra.Command, st *store.Store, id string) (*store.Product, error) {
	product, err := st.GetProduct(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
	}
	return product, nil
}

func splitTags(value string) []string {
	var tags []string
	for _, t := range strings.Split(value, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

func productTable(p store.Product) string {
	pairs := [][2]string{
		{"ID", p.ID},
		{"Name", p.Name},
		{"Price", formatPrice(p.Price)},
		{"Inventory", strconv.Itoa(p.Inventory)},
		{"Published", yesNo(p.IsPublished)},
	}
	if p.Category != "" {
		pairs = append(pairs, [2]string{"Category", p.Category})
	}
	if len(p.Tags) > 0 {
		pairs = append(pairs, [2]string{"Tags", strings.Join(p.Tags, ", ")})
	}
	if p.VendorID != "" {
		pairs = append(pairs, [2]string{"Vendor", p.VendorID})
	}
	if p.SourceFrameID != "" {
		pairs = append(pairs, [2]string{"Frame", p.SourceFrameID})
	}
	if p.SessionID != "" {
		pairs = append(pairs, [2]string{"Session", p.SessionID})
	}
	if img, ok := p.DefaultImage(); ok {
		pairs = append(pairs, [2]string{"Image", formatBytes(int64(len(img.URL)))})
	}
	pairs = append(pairs, [2]string{"Created", formatTime(p.CreatedAt)})
	return renderKeyValues("Product", pairs)
}

func productsTable(products []store.Product) string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{shortID(p.ID), p.Name, formatPrice(p.Price), strconv.Itoa(p.Inventory), yesNo(p.IsPublished)})
	}
	return renderTable(
		[]string{"ID", "Name", "Price", "Inventory", "Published"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}
