package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/modkeep/pkg/modkeep/filter"
	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
	"github.com/jamesainslie/modkeep/pkg/modkeep/output"
	"github.com/jamesainslie/modkeep/pkg/modkeep/repository"
)

var listCmd = &cobra.Command{
	Use:     "list [object]",
	Aliases: []string{"ls"},
	Short:   "List mods",
	Long: `List the mods of one object, or of every object when none is given.

Examples:
  modkeep list
  modkeep list Alice --state off
  modkeep list --include '*hat*' --sort size --desc --limit 10
  modkeep list -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

var listFlags struct {
	state     string
	include   []string
	exclude   []string
	sortBy    string
	desc      bool
	limit     int
	minSize   string
	olderThan string
	newerThan string
}

func init() {
	f := listCmd.Flags()
	f.StringVar(&listFlags.state, "state", "all", "filter by state: all, on, off")
	f.StringSliceVarP(&listFlags.include, "include", "i", nil, "name patterns to include")
	f.StringSliceVarP(&listFlags.exclude, "exclude", "e", nil, "name patterns to exclude")
	f.StringVar(&listFlags.sortBy, "sort", "name", "sort by: name, size, added")
	f.BoolVar(&listFlags.desc, "desc", false, "sort descending")
	f.IntVarP(&listFlags.limit, "limit", "l", 0, "maximum number of mods (0 = all)")
	f.StringVarP(&listFlags.minSize, "min-size", "s", "", "minimum size (e.g. 10M)")
	f.StringVar(&listFlags.olderThan, "older-than", "", "only mods added before this long ago (e.g. 30d)")
	f.StringVar(&listFlags.newerThan, "newer-than", "", "only mods added within this long (e.g. 1w)")
	rootCmd.AddCommand(listCmd)
}

// buildFilter turns the list flags into filter options.
func buildFilter() (*filter.Filter, error) {
	state, err := filter.ParseState(listFlags.state)
	if err != nil {
		return nil, err
	}
	sortBy, err := filter.ParseSortField(listFlags.sortBy)
	if err != nil {
		return nil, err
	}

	opts := []filter.Option{
		filter.WithState(state),
		filter.WithInclude(listFlags.include...),
		filter.WithExclude(listFlags.exclude...),
		filter.WithSortBy(sortBy),
		filter.WithSortDescending(listFlags.desc),
		filter.WithLimit(listFlags.limit),
	}
	if listFlags.minSize != "" {
		n, err := filter.ParseSize(listFlags.minSize)
		if err != nil {
			return nil, err
		}
		opts = append(opts, filter.WithMinSize(n))
	}
	if listFlags.olderThan != "" {
		d, err := filter.ParseDuration(listFlags.olderThan)
		if err != nil {
			return nil, err
		}
		opts = append(opts, filter.WithOlderThan(d))
	}
	if listFlags.newerThan != "" {
		d, err := filter.ParseDuration(listFlags.newerThan)
		if err != nil {
			return nil, err
		}
		opts = append(opts, filter.WithNewerThan(d))
	}
	return filter.New(opts...)
}

// modInfo builds the listing view of an entry. Size errors are returned
// alongside a zero size.
func modInfo(e *repository.Entry) (filter.ModInfo, error) {
	m := e.Mod()
	info := filter.ModInfo{
		ID:          e.ID(),
		Object:      e.Repository().Object(),
		Name:        m.Name(),
		DisplayName: m.DisplayName(),
		Path:        m.Path(),
		Enabled:     e.Enabled(),
	}
	if added := m.Settings().DateAdded; added != nil {
		info.AddedAt = *added
	}
	size, err := m.Size()
	info.Size = size
	return info, err
}

func runList(cmd *cobra.Command, args []string) error {
	flt, err := buildFilter()
	if err != nil {
		return err
	}
	formatter, err := output.Get(v.GetString("output"))
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, output.Available())
	}

	s, err := openSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	repos := s.lib.Repositories()
	if len(args) == 1 {
		repo, err := s.lib.Repository(args[0])
		if err != nil {
			return err
		}
		repos = []*repository.Repository{repo}
	}

	result := &output.Result{Root: s.lib.Root()}
	var infos []filter.ModInfo
	for _, repo := range repos {
		for _, e := range repo.Entries() {
			info, err := modInfo(e)
			if err != nil {
				logging.Get("cli").Warn("sizing mod", "path", info.Path, "error", err)
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", info.Path, err))
			}
			infos = append(infos, info)
		}
	}
	for _, info := range flt.Apply(infos) {
		result.Mods = append(result.Mods, output.RowFrom(info))
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
