package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"livecatalog/internal/store"
)

func newCatalogsCommand(ctx *commandContext) *cobra.Command {
	catalogsCmd := &cobra.Command{
		Use:     "catalogs",
		Aliases: []string{"catalog"},
		Short:   "Assemble products into catalogs",
	}
	catalogsCmd.AddCommand(newCatalogsCreateCommand(ctx))
	catalogsCmd.AddCommand(newCatalogsListCommand(ctx))
	catalogsCmd.AddCommand(newCatalogsAddCommand(ctx))
	catalogsCmd.AddCommand(newCatalogsProductsCommand(ctx))
	return catalogsCmd
}

func newCatalogsCreateCommand(ctx *commandContext) *cobra.Command {
	var catalog store.Catalog
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog.Name = args[0]
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				for _, id := range catalog.SessionIDs {
					if _, err := lookupSession(cmd, st, id); err != nil {
						return err
					}
				}
				if err := st.CreateCatalog(cmd.Context(), &catalog); err != nil {
					return err
				}
				return ctx.emit(cmd, catalog, func() string {
					return fmt.Sprintf("Created catalog %s (%s)", catalog.Name, catalog.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&catalog.Description, "description", "", "Catalog description")
	cmd.Flags().StringVar(&catalog.VendorID, "vendor", "", "Vendor id")
	cmd.Flags().StringSliceVar(&catalog.SessionIDs, "session", nil, "Session whose products the catalog includes (repeatable)")
	return cmd
}

func newCatalogsListCommand(ctx *commandContext) *cobra.Command {
	var vendor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				var (
					catalogs []store.Catalog
					err      error
				)
				if vendor != "" {
					catalogs, err = st.CatalogsByVendor(cmd.Context(), vendor)
				} else {
					catalogs, err = store.GetAll[store.Catalog](cmd.Context(), st, store.CollectionCatalogs)
				}
				if err != nil {
					return err
				}
				return ctx.emit(cmd, catalogs, func() string {
					if len(catalogs) == 0 {
						return "No catalogs"
					}
					rows := make([][]string, 0, len(catalogs))
					for _, c := range catalogs {
						rows = append(rows, []string{
							shortID(c.ID),
							c.Name,
							c.VendorID,
							strconv.Itoa(len(c.ProductIDs)),
							strconv.Itoa(len(c.SessionIDs)),
							yesNo(c.IsPublished),
						})
					}
					return renderTable(
						[]string{"ID", "Name", "Vendor", "Products", "Sessions", "Published"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
					)
				})
			})
		},
	}
	cmd.Flags().StringVar(&vendor, "vendor", "", "Only catalogs of this vendor")
	return cmd
}

func newCatalogsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <catalog-id> <product-id>...",
		Short: "Add products to a catalog",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				for _, productID := range args[1:] {
					if _, err := lookupProduct(cmd, st, productID); err != nil {
						return err
					}
					if err := st.AddProductToCatalog(cmd.Context(), args[0], productID); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d products to %s\n", len(args)-1, args[0])
				return nil
			})
		},
	}
}

func newCatalogsProductsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "products <catalog-id>",
		Short: "List a catalog's products in catalog order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				catalog, err := st.GetCatalog(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if catalog == nil {
					return fmt.Errorf("catalog %s: %w", args[0], store.ErrNotFound)
				}
				products, err := st.ProductsForCatalog(cmd.Context(), catalog.ID)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, products, func() string {
					if len(products) == 0 {
						return fmt.Sprintf("Catalog %s has no products", catalog.Name)
					}
					return productsTable(products)
				})
			})
		},
	}
}
