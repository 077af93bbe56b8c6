package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/holontx/pkg/config"
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/loader"
	"github.com/cuemby/holontx/pkg/log"
	"github.com/cuemby/holontx/pkg/reference"
	"github.com/cuemby/holontx/pkg/txctx"
)

// Property names the loader's bundle graph is built from. These
// mirror pkg/loader's own (unexported) bundle schema constants;
// duplicated here since that schema is the wire contract a bundle
// file is written against, not something pkg/loader exports.
const (
	relationshipNameProperty holon.PropertyName = "relationship_name"
	isDeclaredProperty       holon.PropertyName = "is_declared"
	holonKeyProperty         holon.PropertyName = "holon_key"
)

// bundleFile is the on-disk JSON shape "holonctl load" accepts: a flat
// list of members, each with properties and the relationships it is
// the declared source of.
type bundleFile struct {
	Members []bundleMember `json:"members"`
}

type bundleMember struct {
	Key           string                 `json:"key"`
	Properties    map[string]interface{} `json:"properties"`
	Relationships []bundleRelationship   `json:"relationships"`
}

type bundleRelationship struct {
	Name     string   `json:"name"`
	Declared *bool    `json:"declared"`
	Targets  []string `json:"targets"`
}

var loadCmd = &cobra.Command{
	Use:   "load BUNDLE.json",
	Short: "Bulk-load a bundle file and commit it through the two-pass loader",
	Long: `load reads a JSON bundle (a flat list of keyed members, their
properties, and the relationships each declares), stages every member
as a properties-only holon, resolves each declared relationship by
key, and commits the result. See pkg/loader for the pass structure.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bf, err := readBundleFile(args[0])
		if err != nil {
			return err
		}

		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.close()

		bundle, err := buildBundle(eng.facade, bf)
		if err != nil {
			return fmt.Errorf("building bundle: %w", err)
		}

		cfg := config.Default()
		if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}

		result, err := loader.LoadBundle(context.Background(), eng.facade, eng.adapter, eng.router, bundle, cfg.SkipPropertySet())
		if err != nil {
			return fmt.Errorf("loading bundle: %w", err)
		}

		if err := eng.save(nil); err != nil {
			return fmt.Errorf("saving session state: %w", err)
		}

		logger := log.WithComponent("holonctl")
		logger.Info().Str("status", string(result.Status)).
			Int("mapper_errors", len(result.MapperErrors)).
			Int("resolver_errors", len(result.ResolverErrors)).
			Msg("bundle load finished")

		fmt.Printf("status: %s\n", result.Status)
		for _, e := range result.MapperErrors {
			fmt.Printf("  mapper error: %v\n", e)
		}
		for _, e := range result.ResolverErrors {
			fmt.Printf("  resolver error: %v\n", e)
		}
		if result.CommitResponse != nil {
			fmt.Printf("saved: %d  abandoned: %d\n", len(result.CommitResponse.SavedHolons), len(result.CommitResponse.AbandonedHolons))
		}

		if result.Status == loader.Incomplete {
			return fmt.Errorf("bundle load incomplete")
		}
		return nil
	},
}

func init() {
	loadCmd.Flags().String("config", "", "optional YAML config file (see pkg/config) for loader_skip_properties")
}

func readBundleFile(path string) (*bundleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle file: %w", err)
	}
	var bf bundleFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parsing bundle file: %w", err)
	}
	return &bf, nil
}

// buildBundle constructs the transient graph pkg/loader.LoadBundle
// expects: a root transient's BundleMembers collection holding one
// transient per member, each carrying its own HasRelationshipReference
// collection for the relationships it declares.
func buildBundle(facade *txctx.MutationFacade, bf *bundleFile) (reference.TransientReference, error) {
	bundle, err := facade.NewHolon("")
	if err != nil {
		return reference.TransientReference{}, err
	}

	memberRefs := make([]holon.HolonReference, 0, len(bf.Members))
	for _, m := range bf.Members {
		memberRef, err := facade.NewHolon(m.Key)
		if err != nil {
			return reference.TransientReference{}, err
		}
		for name, raw := range m.Properties {
			value, err := propertyValueFromJSON(raw)
			if err != nil {
				return reference.TransientReference{}, fmt.Errorf("member %s property %s: %w", m.Key, name, err)
			}
			if err := memberRef.WithPropertyValue(holon.PropertyName(name), value); err != nil {
				return reference.TransientReference{}, err
			}
		}
		for _, rel := range m.Relationships {
			relRef, err := buildRelationshipReference(facade, m.Key, rel)
			if err != nil {
				return reference.TransientReference{}, err
			}
			if err := memberRef.AddRelatedHolons(loader.HasRelationshipReference, []holon.HolonReference{relRef}); err != nil {
				return reference.TransientReference{}, err
			}
		}
		memberRefs = append(memberRefs, memberRef)
	}

	if err := bundle.AddRelatedHolons(loader.BundleMembers, memberRefs); err != nil {
		return reference.TransientReference{}, err
	}
	return bundle, nil
}

func buildRelationshipReference(facade *txctx.MutationFacade, sourceKey string, rel bundleRelationship) (reference.TransientReference, error) {
	relRef, err := facade.NewHolon("")
	if err != nil {
		return reference.TransientReference{}, err
	}
	if err := relRef.WithPropertyValue(relationshipNameProperty, holon.StringValue(rel.Name)); err != nil {
		return reference.TransientReference{}, err
	}
	declared := true
	if rel.Declared != nil {
		declared = *rel.Declared
	}
	if err := relRef.WithPropertyValue(isDeclaredProperty, holon.BooleanValue(declared)); err != nil {
		return reference.TransientReference{}, err
	}

	sourceRef, err := buildHolonKeyReference(facade, sourceKey)
	if err != nil {
		return reference.TransientReference{}, err
	}
	if err := relRef.AddRelatedHolons(loader.ReferenceSource, []holon.HolonReference{sourceRef}); err != nil {
		return reference.TransientReference{}, err
	}

	targets := make([]holon.HolonReference, 0, len(rel.Targets))
	for _, t := range rel.Targets {
		targetRef, err := buildHolonKeyReference(facade, t)
		if err != nil {
			return reference.TransientReference{}, err
		}
		targets = append(targets, targetRef)
	}
	if err := relRef.AddRelatedHolons(loader.ReferenceTarget, targets); err != nil {
		return reference.TransientReference{}, err
	}

	return relRef, nil
}

func buildHolonKeyReference(facade *txctx.MutationFacade, key string) (reference.TransientReference, error) {
	ref, err := facade.NewHolon("")
	if err != nil {
		return reference.TransientReference{}, err
	}
	if err := ref.WithPropertyValue(holonKeyProperty, holon.StringValue(key)); err != nil {
		return reference.TransientReference{}, err
	}
	return ref, nil
}

func propertyValueFromJSON(v interface{}) (holon.PropertyValue, error) {
	switch t := v.(type) {
	case string:
		return holon.StringValue(t), nil
	case bool:
		return holon.BooleanValue(t), nil
	case float64:
		return holon.IntegerValue(int64(t)), nil
	default:
		return nil, fmt.Errorf("unsupported property value %v (%T)", v, v)
	}
}
