// Public domain.

package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/soniakeys/mapds/internal/models"
)

var (
	_ Stackable = (*MapDataset)(nil)
	_ Stackable = (*MapDatasetOnOff)(nil)
	_ Dataset   = (*SpectrumDataset)(nil)
	_ Dataset   = (*SpectrumDatasetOnOff)(nil)
)

// Datasets is an ordered collection of datasets.  Names are expected to
// be unique; Append enforces it.
type Datasets []Dataset

// ErrDuplicateName is returned by Append for a name already present.
var ErrDuplicateName = errors.New("duplicate dataset name")

// Append adds d to the end of the collection.
func (ds *Datasets) Append(d Dataset) error {
	if ds.Get(d.Name()) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateName, d.Name())
	}
	*ds = append(*ds, d)
	return nil
}

// Names lists dataset names in order.
func (ds Datasets) Names() []string {
	n := make([]string, len(ds))
	for i, d := range ds {
		n[i] = d.Name()
	}
	return n
}

// Get returns the named dataset or nil.
func (ds Datasets) Get(name string) Dataset {
	for _, d := range ds {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// StatSum is the sum of the fit statistics of all datasets.
func (ds Datasets) StatSum() (float64, error) {
	var s float64
	for _, d := range ds {
		v, err := d.StatSum()
		if err != nil {
			return 0, fmt.Errorf("dataset %s: %w", d.Name(), err)
		}
		s += v
	}
	return s, nil
}

// Models lists the models of all datasets.  A model shared by several
// datasets appears once.
func (ds Datasets) Models() models.Models {
	seen := map[models.Model]bool{}
	var ms models.Models
	for _, d := range ds {
		for _, m := range d.Components() {
			if !seen[m] {
				seen[m] = true
				ms = append(ms, m)
			}
		}
	}
	return ms
}

// Parameters lists the parameters of Models.
func (ds Datasets) Parameters() models.Parameters {
	return ds.Models().Parameters()
}

// StackReduce stacks all datasets onto a copy of the first, named name.
// Members must all be map datasets or all on/off map datasets.
func (ds Datasets) StackReduce(name string) (Stackable, error) {
	if len(ds) == 0 {
		return nil, errors.New("no datasets to stack")
	}
	var acc interface {
		Stackable
		Stack(Stackable) error
	}
	switch t := ds[0].(type) {
	case *MapDatasetOnOff:
		acc = t.Copy(name)
	case *MapDataset:
		acc = t.Copy(name)
	default:
		return nil, fmt.Errorf("dataset %s: %s cannot be stacked", t.Name(), t.Tag())
	}
	for _, d := range ds[1:] {
		s, ok := d.(Stackable)
		if !ok {
			return nil, fmt.Errorf("dataset %s: %s cannot be stacked", d.Name(), d.Tag())
		}
		if err := acc.Stack(s); err != nil {
			return nil, fmt.Errorf("stacking %s: %w", d.Name(), err)
		}
		logger.Debug("stacked", "into", name, "dataset", d.Name())
	}
	return acc, nil
}

// index file layout

type indexEntry struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Filename   string `yaml:"filename"`
	Background string `yaml:"background,omitempty"`
}

type indexYAML struct {
	Datasets []indexEntry `yaml:"datasets"`
}

// DataFilename is the file name Datasets.Write uses for the named
// dataset.
func DataFilename(prefix, name string) string {
	return fmt.Sprintf("%s_data_%s.fits", prefix, name)
}

// IndexFilename and ModelsFilename name the index and models files
// written by Datasets.Write.
func IndexFilename(prefix string) string  { return prefix + "_datasets.yaml" }
func ModelsFilename(prefix string) string { return prefix + "_models.yaml" }

// Write writes each dataset to its own FITS file in dir, an index of the
// files, and, if any dataset has models, the models.  Only map datasets
// can be written.
func (ds Datasets) Write(dir, prefix string, overwrite bool) error {
	var idx indexYAML
	for _, d := range ds {
		e := indexEntry{Name: d.Name(), Type: d.Tag(), Filename: DataFilename(prefix, d.Name())}
		path := filepath.Join(dir, e.Filename)
		var err error
		switch t := d.(type) {
		case *MapDatasetOnOff:
			err = t.Write(path, overwrite)
		case *MapDataset:
			if t.BackgroundModel != nil {
				e.Background = t.BackgroundModel.Name()
			}
			err = t.Write(path, overwrite)
		default:
			err = fmt.Errorf("%s cannot be written", d.Tag())
		}
		if err != nil {
			return fmt.Errorf("dataset %s: %w", d.Name(), err)
		}
		idx.Datasets = append(idx.Datasets, e)
	}
	if err := writeYAML(filepath.Join(dir, IndexFilename(prefix)), overwrite, &idx); err != nil {
		return err
	}
	ms := ds.Models()
	if len(ms) == 0 {
		return nil
	}
	mp := filepath.Join(dir, ModelsFilename(prefix))
	if !overwrite {
		if _, err := os.Stat(mp); err == nil {
			return fmt.Errorf("%s: %w", mp, os.ErrExist)
		}
	}
	return ms.WriteYAMLFile(mp)
}

func writeYAML(path string, overwrite bool, v interface{}) error {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0666)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadDatasets reads an index written by Datasets.Write.  Data file names
// are relative to the index.  With a non-empty modelsPath, sky models are
// attached to the datasets they name and background parameters restored.
func ReadDatasets(indexPath, modelsPath string) (Datasets, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, err
	}
	var idx indexYAML
	err = yaml.NewDecoder(f).Decode(&idx)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", indexPath, err)
	}
	var ms models.Models
	if modelsPath != "" {
		if ms, err = models.ReadYAMLFile(modelsPath); err != nil {
			return nil, err
		}
	}
	dir := filepath.Dir(indexPath)
	var ds Datasets
	for _, e := range idx.Datasets {
		path := e.Filename
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		var d Dataset
		switch e.Type {
		case "MapDataset":
			md, err := ReadMapDataset(path, e.Name)
			if err != nil {
				return nil, err
			}
			if md.BackgroundModel != nil && e.Background != "" {
				md.BackgroundModel = models.NewBackgroundModel(md.BackgroundModel.Map,
					e.Background, md.name)
			}
			d = md
		case "MapDatasetOnOff":
			od, err := ReadMapDatasetOnOff(path, e.Name)
			if err != nil {
				return nil, err
			}
			d = od
		default:
			return nil, fmt.Errorf("%s: dataset %s has unknown type %q", indexPath, e.Name, e.Type)
		}
		if err := ds.Append(d); err != nil {
			return nil, err
		}
	}
	if ms != nil {
		ds.attachModels(ms)
	}
	return ds, nil
}

// attachModels gives each map dataset the sky models that apply to it
// and copies background parameters by name.
func (ds Datasets) attachModels(ms models.Models) {
	var sky models.Models
	for _, sm := range ms.SkyModels() {
		sky = append(sky, sm)
	}
	for _, d := range ds {
		var md *MapDataset
		switch t := d.(type) {
		case *MapDatasetOnOff:
			md = &t.MapDataset
		case *MapDataset:
			md = t
		default:
			continue
		}
		md.Models = sky.ForDataset(md.name)
		md.evaluators = nil
		if md.BackgroundModel != nil {
			models.Models{md.BackgroundModel}.SetParameters(ms)
		}
	}
}
