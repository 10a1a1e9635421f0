// Public domain.

// Package dataset bundles observed counts with the background, exposure
// and instrument response maps needed to predict them from models.
//
// MapDataset is the binned sky and energy dataset fit with the Cash
// statistic.  MapDatasetOnOff replaces the background model with a
// background measured in off regions and is fit with WStat.  Either
// projects to a one dimensional SpectrumDataset over a sky region.
// Datasets is an ordered collection with batched statistics and I/O.
//
// Stack modifies its receiver.  ToImage, Cutout, Copy and
// ToSpectrumDataset return new datasets and leave the receiver unchanged.
package dataset

import (
	"errors"
	"log/slog"

	"github.com/soniakeys/mapds/internal/models"
)

var (
	// ErrNoGeometry is returned when neither counts nor a safe mask is
	// present to define the geometry of a dataset.
	ErrNoGeometry = errors.New("dataset has no counts or safe mask to define its geometry")
	// ErrNoCounts is returned by statistics on a dataset without counts.
	ErrNoCounts = errors.New("dataset has no counts")
	// ErrNoCountsOff is returned when an on/off quantity needs off counts.
	ErrNoCountsOff = errors.New("dataset has no off counts")
	// ErrNoAcceptance is returned when alpha needs an off acceptance.
	ErrNoAcceptance = errors.New("dataset has no off acceptance")
	// ErrNotOnOff is returned when an on/off dataset is stacked with a
	// dataset of another type.
	ErrNotOnOff = errors.New("on/off datasets stack only with on/off datasets")
	// ErrNoLivetime is returned when exposure is reduced to effective area
	// without good time intervals.
	ErrNoLivetime = errors.New("effective area needs a non-zero livetime")
)

var logger = slog.New(slog.DiscardHandler)

// SetLogger sets the logger for the package.  The default discards.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Dataset is the behavior common to all dataset types.
type Dataset interface {
	Name() string
	// Tag names the dataset type, as used in dataset index files.
	Tag() string
	// Components lists the models of the dataset, sky models first.
	Components() models.Models
	// StatSum is the fit statistic summed over the fit mask.
	StatSum() (float64, error)
}

// Stackable is a dataset that can be stacked onto a MapDataset.
type Stackable interface {
	Dataset
	stackData() (*stackData, error)
}
