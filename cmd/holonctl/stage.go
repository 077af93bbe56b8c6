package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/log"
)

var stageCmd = &cobra.Command{
	Use:   "stage KEY",
	Short: "Stage a new holon for create, pending commit",
	Long: `stage creates a Transient holon, applies any --prop/--int-prop/
--bool-prop values, and promotes it to a ForCreate Staged holon in the
Nursery. The updated pool state is written back to --state-file so a
later "holonctl commit" picks it up.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.close()

		props, err := cmd.Flags().GetStringArray("prop")
		if err != nil {
			return err
		}
		intProps, err := cmd.Flags().GetStringArray("int-prop")
		if err != nil {
			return err
		}
		boolProps, err := cmd.Flags().GetStringArray("bool-prop")
		if err != nil {
			return err
		}

		transient, err := eng.facade.NewHolon(key)
		if err != nil {
			return fmt.Errorf("creating transient holon: %w", err)
		}

		if err := applyStringProps(transient, props); err != nil {
			return err
		}
		if err := applyIntProps(transient, intProps); err != nil {
			return err
		}
		if err := applyBoolProps(transient, boolProps); err != nil {
			return err
		}

		staged, err := eng.facade.StageNewHolon(transient)
		if err != nil {
			return fmt.Errorf("staging holon: %w", err)
		}

		if err := eng.save(nil); err != nil {
			return fmt.Errorf("saving session state: %w", err)
		}

		log.WithComponent("holonctl").Info().Str("key", key).Str("staged_id", staged.ID().String()).Msg("staged holon for create")
		fmt.Printf("staged %s (key=%s)\n", staged.ID(), key)
		return nil
	},
}

func init() {
	stageCmd.Flags().StringArray("prop", nil, "string property as name=value (repeatable)")
	stageCmd.Flags().StringArray("int-prop", nil, "integer property as name=value (repeatable)")
	stageCmd.Flags().StringArray("bool-prop", nil, "boolean property as name=value (repeatable)")
}

type propertySetter interface {
	WithPropertyValue(name holon.PropertyName, value holon.PropertyValue) error
}

func applyStringProps(target propertySetter, props []string) error {
	for _, p := range props {
		name, value, err := splitProp(p)
		if err != nil {
			return err
		}
		if err := target.WithPropertyValue(name, holon.StringValue(value)); err != nil {
			return err
		}
	}
	return nil
}

func applyIntProps(target propertySetter, props []string) error {
	for _, p := range props {
		name, value, err := splitProp(p)
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("int-prop %q: %w", p, err)
		}
		if err := target.WithPropertyValue(name, holon.IntegerValue(n)); err != nil {
			return err
		}
	}
	return nil
}

func applyBoolProps(target propertySetter, props []string) error {
	for _, p := range props {
		name, value, err := splitProp(p)
		if err != nil {
			return err
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("bool-prop %q: %w", p, err)
		}
		if err := target.WithPropertyValue(name, holon.BooleanValue(b)); err != nil {
			return err
		}
	}
	return nil
}

func splitProp(p string) (holon.PropertyName, string, error) {
	parts := strings.SplitN(p, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("property %q is not in name=value form", p)
	}
	return holon.PropertyName(parts[0]), parts[1], nil
}
