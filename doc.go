/*
Command mapds reduces, inspects and fits binned gamma-ray map datasets.

Contents

Version 0.3

  Program overview
  Dataset collections
  Command line usage
  Configuration
  File formats
  Statistics


Program overview

A map dataset bundles the counts observed in bins of sky position and
reconstructed energy with what is needed to predict them: exposure in bins
of true energy, a point spread function map, an energy dispersion map, a
background model, safe and fit masks, and good time intervals.  Sky models
attached to a dataset are folded through exposure, PSF and energy
dispersion and added to the background to give predicted counts.

An on/off dataset replaces the background model with counts measured in
off regions, scaled by the ratio of on and off acceptance.

Either kind reduces to a spectrum over a circular sky region, to an image
summed over energy, or to a cutout around a sky position.  Datasets on a
common grid stack into one.

Sample run:

  simds -n 3                      three simulated observations, prefix sim
  mapds info sim_datasets.yaml    summaries and total statistic
  mapds stack --prefix st sim_datasets.yaml
  mapds fit --prefix fitted st_datasets.yaml
  mapds plot fitted_datasets.yaml

The fit adjusts the free parameters of the source and the background
normalization.  The plot command writes residual images.


Dataset collections

Commands read and write collections.  A collection with prefix p is

  p_datasets.yaml      index: name, type, data file and background name
                       of each dataset, in order
  p_data_<name>.fits   one FITS file per dataset
  p_models.yaml        sky and background models, present only when
                       some dataset has models

Data file names in an index are relative to the index.  Names within a
collection are unique.


Command line usage

  mapds info <index>
  mapds stack [--name n] <index>...
  mapds image <index>
  mapds cutout [--lon l --lat b --frame f --width w[,h]] <index>
  mapds fake <index>
  mapds spectrum [--lon l --lat b --frame f --radius r --containment] <index>
  mapds fit [--max-eval n] <index>
  mapds hdf5 <index> <file.h5>
  mapds plot [--dataset n --method m --spatial f --spectral f] <index>

Angles are in degrees.  Commands producing datasets write a new collection
under --prefix in --outdir and do not replace existing files unless given
--overwrite.  Fake draws dataset i of a collection with seed --seed + i,
so a given seed reproduces the same counts.


Configuration

Persistent flags may also be given in a YAML config file, mapds.yaml in the
current directory or home directory, or named with --config, and in
environment variables with prefix MAPDS_, for example

  outdir: reduced
  overwrite: true
  log-level: debug

or MAPDS_LOG_LEVEL=debug.  Flags override environment, which overrides the
config file.

A models file other than the index's own is named with --models.


File formats

FITS data files have one HDU per component, in the order COUNTS, EXPOSURE,
BACKGROUND, EDISP, EDISP_EXPOSURE, PSF, PSF_EXPOSURE, MASK_SAFE, MASK_FIT,
GTI, followed by COUNTS_OFF, ACCEPTANCE and ACCEPTANCE_OFF for on/off
datasets.  Each map and mask HDU is followed by a _BANDS table of its
non-spatial axes.  Absent components have no HDU.  Images are 64 bit floats
with unit in BUNIT; masks are bytes.

The BACKGROUND HDU holds the background map before normalization.  The
norm and tilt are in the models file.

The HDF5 export holds one group per dataset, named by the dataset, with a
dataset per map and a "meta" dataset whose attributes give type, background
name and good time intervals.


Statistics

Map datasets are fit with the Cash statistic,

  C = 2 (mu - n ln mu)

summed over bins of the fit and safe masks.  On/off datasets use WStat,
which profiles the unknown background from the on and off counts.  The
statistic of a collection is the sum over its datasets.

-------------
Public domain.
*/
package main
