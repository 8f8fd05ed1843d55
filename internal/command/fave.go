package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/collabiora/companion/internal/cache"
	"github.com/collabiora/companion/internal/favorites"
	"github.com/collabiora/companion/internal/types"
)

func itemFlags(cmd *cobra.Command) {
	cmd.Flags().String("item", "", "item payload as JSON")
	cmd.Flags().String("id", "", "item id")
	cmd.Flags().String("name", "", "person name")
	cmd.Flags().String("title", "", "publication or trial title")
	cmd.Flags().String("orcid", "", "ORCID identifier")
	cmd.Flags().String("pmid", "", "PubMed identifier")
	cmd.Flags().String("doi", "", "DOI")
	cmd.Flags().String("nct", "", "clinical trial registry id")
}

func itemFromFlags(cmd *cobra.Command) (types.Item, error) {
	var item types.Item
	if raw, _ := cmd.Flags().GetString("item"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return types.Item{}, fmt.Errorf("invalid --item payload: %w", err)
		}
		return item, nil
	}
	item.ID, _ = cmd.Flags().GetString("id")
	item.Name, _ = cmd.Flags().GetString("name")
	item.Title, _ = cmd.Flags().GetString("title")
	item.ORCID, _ = cmd.Flags().GetString("orcid")
	item.PMID, _ = cmd.Flags().GetString("pmid")
	item.DOI, _ = cmd.Flags().GetString("doi")
	item.NCTID, _ = cmd.Flags().GetString("nct")
	return item, nil
}

// favoritesStore assembles the optimistic store for the logged-in user.
func favoritesStore(cmd *cobra.Command, ctx *Context) (*favorites.Store, func(), error) {
	sess, err := ctx.RequireSession()
	if err != nil {
		return nil, nil, err
	}
	client, err := ctx.APIClient()
	if err != nil {
		return nil, nil, err
	}
	cacheDB, err := cache.Open(ctx.Config.StateDir)
	if err != nil {
		return nil, nil, err
	}
	store := favorites.NewStore(client, sess.User.ID, newNotifier(cmd, ctx), cacheDB, ctx.Logger)
	return store, func() { _ = cacheDB.Close() }, nil
}

// NewFaveCmd creates the fave command.
func NewFaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fave <kind>",
		Short: "Toggle an item in your favorites",
		Long:  "Add an expert, publication, trial, or collaborator to your favorites. Toggling an already-faved item removes it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			kind := types.FavoriteKind(args[0])
			if !types.ValidKind(kind) {
				return writeCommandError(cmd, fmt.Errorf("unknown kind %q (expert, publication, trial, collaborator)", args[0]))
			}
			item, err := itemFromFlags(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			store, closeStore, err := favoritesStore(cmd, ctx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer closeStore()

			// Seed the collection so the toggle decision sees current state.
			// A failed read falls back to empty, per the read-failure policy.
			_ = store.Refresh(cmd.Context())

			res, err := store.Toggle(cmd.Context(), kind, item)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"action":   res.Action,
					"kind":     kind,
					"identity": res.Identity,
				})
			}
			switch res.Action {
			case favorites.ActionAdded:
				fmt.Fprintf(cmd.OutOrStdout(), "Faved %s %s\n", kind, res.Identity)
			case favorites.ActionRemoved:
				fmt.Fprintf(cmd.OutOrStdout(), "Unfaved %s %s\n", kind, res.Identity)
			case favorites.ActionDropped:
				fmt.Fprintln(cmd.OutOrStdout(), "A toggle for this item is already in flight")
			}
			return nil
		},
	}
	itemFlags(cmd)
	return cmd
}

// NewUnfaveCmd creates the unfave command.
func NewUnfaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unfave <kind>",
		Short: "Remove an item from your favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			kind := types.FavoriteKind(args[0])
			if !types.ValidKind(kind) {
				return writeCommandError(cmd, fmt.Errorf("unknown kind %q", args[0]))
			}
			item, err := itemFromFlags(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			store, closeStore, err := favoritesStore(cmd, ctx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer closeStore()

			_ = store.Refresh(cmd.Context())

			// Unlike fave, this never adds: an item that is not currently
			// favorited is left alone.
			if !store.IsFavorite(kind, item) {
				if ctx.JSONMode {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"removed": false})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Not in your favorites")
				return nil
			}

			res, err := store.Toggle(cmd.Context(), kind, item)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"removed":  res.Action == favorites.ActionRemoved,
					"identity": res.Identity,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unfaved %s %s\n", kind, res.Identity)
			return nil
		},
	}
	itemFlags(cmd)
	return cmd
}

// NewFavesCmd creates the faves listing command.
func NewFavesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faves",
		Short: "List your favorites",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			sess, err := ctx.RequireSession()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			kindFilter, _ := cmd.Flags().GetString("kind")
			kind := types.FavoriteKind(kindFilter)
			if kindFilter != "" && !types.ValidKind(kind) {
				return writeCommandError(cmd, fmt.Errorf("unknown kind %q", kindFilter))
			}

			store, closeStore, err := favoritesStore(cmd, ctx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer closeStore()

			var entries []types.FavoriteEntry
			if err := store.Refresh(cmd.Context()); err == nil {
				for _, entry := range store.Entries() {
					if kindFilter == "" || entry.Kind == kind {
						entries = append(entries, entry)
					}
				}
			} else {
				// Offline: render the last mirrored snapshot.
				cacheDB, cacheErr := cache.Open(ctx.Config.StateDir)
				if cacheErr != nil {
					return writeCommandError(cmd, cacheErr)
				}
				defer cacheDB.Close()
				entries, cacheErr = cache.List(cacheDB, sess.User.ID, kind)
				if cacheErr != nil {
					return writeCommandError(cmd, cacheErr)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Backend unreachable, showing cached favorites")
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"items": entries})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderFavorites(entries))
			return nil
		},
	}
	cmd.Flags().String("kind", "", "filter by kind")
	return cmd
}
