// Public domain.

package mdprog

import (
	"context"
	"fmt"

	"github.com/soniakeys/unit"
	"github.com/spf13/cobra"

	"github.com/soniakeys/mapds/internal/dataset"
	"github.com/soniakeys/mapds/internal/fit"
	"github.com/soniakeys/mapds/internal/geom"
)

func (p *program) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <index>",
		Short: "Print a summary of each dataset and the total statistic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := p.read(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, d := range ds {
				fmt.Fprintln(w, d)
			}
			s, err := ds.StatSum()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Datasets: %d, total stat: %.2f\n", len(ds), s)
			return nil
		},
	}
}

func (p *program) stackCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "stack <index>...",
		Short: "Stack all datasets of one or more collections into one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// collections are read concurrently, stacked in argument order.
			cs, err := ordered(cmd.Context(), len(args),
				func(_ context.Context, i int) (dataset.Datasets, error) {
					return p.read(args[i])
				})
			if err != nil {
				return err
			}
			var all dataset.Datasets
			for _, c := range cs {
				for _, d := range c {
					if err := all.Append(d); err != nil {
						return err
					}
				}
			}
			s, err := all.StackReduce(name)
			if err != nil {
				return err
			}
			return p.write(dataset.Datasets{s})
		},
	}
	cmd.Flags().StringVar(&name, "name", "stacked", "name of the stacked dataset")
	return cmd
}

// each applies f concurrently to the datasets of the collection at index
// and writes the results as a new collection.
func (p *program) each(ctx context.Context, index string,
	f func(i int, d dataset.Dataset) (dataset.Dataset, error)) error {
	ds, err := p.read(index)
	if err != nil {
		return err
	}
	r, err := ordered(ctx, len(ds), func(ctx context.Context, i int) (dataset.Dataset, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return f(i, ds[i])
	})
	if err != nil {
		return err
	}
	return p.write(r)
}

func (p *program) imageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "image <index>",
		Short: "Sum each dataset over its energy axes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.each(cmd.Context(), args[0], func(_ int, d dataset.Dataset) (dataset.Dataset, error) {
				switch t := d.(type) {
				case *dataset.MapDatasetOnOff:
					return t.ToImage()
				case *dataset.MapDataset:
					return t.ToImage()
				}
				return nil, fmt.Errorf("dataset %s: %s has no image", d.Name(), d.Tag())
			})
		},
	}
}

// position holds flags for a sky position.
type position struct {
	lon, lat float64
	frame    string
}

func (s *position) flags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&s.lon, "lon", 0, "longitude, deg")
	cmd.Flags().Float64Var(&s.lat, "lat", 0, "latitude, deg")
	cmd.Flags().StringVar(&s.frame, "frame", geom.FrameICRS, "sky frame: icrs or galactic")
}

func (s *position) coord() (geom.SkyCoord, error) {
	if err := geom.CheckFrame(s.frame); err != nil {
		return geom.SkyCoord{}, err
	}
	return geom.NewSkyCoord(s.lon, s.lat, s.frame), nil
}

func (p *program) cutoutCmd() *cobra.Command {
	var pos position
	var width []float64
	cmd := &cobra.Command{
		Use:   "cutout <index>",
		Short: "Cut a rectangular sky region out of each dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := pos.coord()
			if err != nil {
				return err
			}
			var w [2]unit.Angle
			switch len(width) {
			case 1:
				w[0], w[1] = unit.AngleFromDeg(width[0]), unit.AngleFromDeg(width[0])
			case 2:
				w[0], w[1] = unit.AngleFromDeg(width[0]), unit.AngleFromDeg(width[1])
			default:
				return fmt.Errorf("width needs one or two values, got %d", len(width))
			}
			return p.each(cmd.Context(), args[0], func(_ int, d dataset.Dataset) (dataset.Dataset, error) {
				switch t := d.(type) {
				case *dataset.MapDatasetOnOff:
					return t.Cutout(c, w)
				case *dataset.MapDataset:
					return t.Cutout(c, w)
				}
				return nil, fmt.Errorf("dataset %s: %s has no cutout", d.Name(), d.Tag())
			})
		},
	}
	pos.flags(cmd)
	cmd.Flags().Float64SliceVar(&width, "width", []float64{1}, "width, or width,height, deg")
	return cmd
}

func (p *program) fakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fake <index>",
		Short: "Replace counts with a Poisson draw of the predicted counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := p.v.GetUint64(keySeed)
			return p.each(cmd.Context(), args[0], func(i int, d dataset.Dataset) (dataset.Dataset, error) {
				f, ok := d.(interface{ Fake(uint64) error })
				if !ok {
					return nil, fmt.Errorf("dataset %s: %s cannot be faked", d.Name(), d.Tag())
				}
				return d, f.Fake(seed + uint64(i))
			})
		},
	}
}

func (p *program) spectrumCmd() *cobra.Command {
	var pos position
	var radius float64
	var containment bool
	cmd := &cobra.Command{
		Use:   "spectrum <index>",
		Short: "Reduce each dataset to a spectrum in a circular region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := pos.coord()
			if err != nil {
				return err
			}
			region := geom.NewCircleRegion(c, unit.AngleFromDeg(radius))
			ds, err := p.read(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, d := range ds {
				var s dataset.Dataset
				switch t := d.(type) {
				case *dataset.MapDatasetOnOff:
					s, err = t.ToSpectrumDataset(region, containment)
				case *dataset.MapDataset:
					s, err = t.ToSpectrumDataset(region, containment)
				default:
					err = fmt.Errorf("dataset %s: %s has no spectrum", d.Name(), d.Tag())
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(w, s)
			}
			return nil
		},
	}
	pos.flags(cmd)
	cmd.Flags().Float64Var(&radius, "radius", .1, "region radius, deg")
	cmd.Flags().BoolVar(&containment, "containment", false, "correct effective area for PSF containment")
	return cmd
}

func (p *program) fitCmd() *cobra.Command {
	var maxEval int
	cmd := &cobra.Command{
		Use:   "fit <index>",
		Short: "Fit free model parameters and write the collection with fitted models",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := p.read(args[0])
			if err != nil {
				return err
			}
			f := fit.New(ds)
			f.MaxEval = maxEval
			r, err := f.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r)
			if !r.Success {
				p.log.Warn("fit did not converge", "message", r.Message)
			}
			return p.write(ds)
		},
	}
	cmd.Flags().IntVar(&maxEval, "max-eval", 5000, "maximum statistic evaluations")
	return cmd
}

func (p *program) hdf5Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hdf5 <index> <file.h5>",
		Short: "Export a collection to a single HDF5 file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := p.read(args[0])
			if err != nil {
				return err
			}
			if err := ds.WriteHDF5(args[1]); err != nil {
				return err
			}
			p.log.Info("wrote "+args[1], "datasets", len(ds))
			return nil
		},
	}
}

func (p *program) plotCmd() *cobra.Command {
	var name, method, spatial, spectral string
	cmd := &cobra.Command{
		Use:   "plot <index>",
		Short: "Plot spatial and spectral residuals of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := p.read(args[0])
			if err != nil {
				return err
			}
			var d dataset.Dataset
			if name == "" && len(ds) > 0 {
				d = ds[0]
			} else {
				d = ds.Get(name)
			}
			md, ok := d.(*dataset.MapDataset)
			if !ok {
				return fmt.Errorf("no map dataset %q in %s", name, args[0])
			}
			return md.PlotResiduals(spatial, spectral, method)
		},
	}
	cmd.Flags().StringVar(&name, "dataset", "", "dataset name (default first)")
	cmd.Flags().StringVar(&method, "method", dataset.ResidualDiff, "residual method: diff, diff/model, diff/sqrt(model)")
	cmd.Flags().StringVar(&spatial, "spatial", "residuals_spatial.png", "spatial plot file, empty to skip")
	cmd.Flags().StringVar(&spectral, "spectral", "residuals_spectral.png", "spectral plot file, empty to skip")
	return cmd
}
