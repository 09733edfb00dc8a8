package healpix

import (
	"fmt"
	"os"

	"github.com/astrogo/fits"
)

// healpixBitpix is the FITS BITPIX for a float64 image array.
const healpixBitpix = -64

// ReadMaskFITS reads a HEALPix map stored as a single-HDU FITS image with
// PIXTYPE/ORDERING/NSIDE header keywords (spec §6: "Mask file: HEALPix
// FITS"), mirroring the original tool's `healpy.read_map`.
func ReadMaskFITS(path string) (*Mask, error) {
	f, err := fits.Open(path)
	if err != nil {
		return nil, fmt.Errorf("healpix: open %s: %w", path, err)
	}
	defer f.Close()

	hdus := f.HDUs()
	if len(hdus) == 0 {
		return nil, fmt.Errorf("healpix: %s: no HDUs", path)
	}
	img, ok := hdus[0].(*fits.Image)
	if !ok {
		return nil, fmt.Errorf("healpix: %s: primary HDU is not an image", path)
	}

	card := img.Header().Get("NSIDE")
	if card == nil {
		return nil, fmt.Errorf("healpix: %s: missing NSIDE header keyword", path)
	}
	nside, ok := card.Value.(int64)
	if !ok {
		return nil, fmt.Errorf("healpix: %s: NSIDE header keyword is not an integer", path)
	}

	values := make([]float64, NPix(int(nside)))
	if err := img.Read(&values); err != nil {
		return nil, fmt.Errorf("healpix: %s: read map data: %w", path, err)
	}
	return &Mask{NSide: int(nside), Values: values}, nil
}

// WriteMaskFITS writes m as a single-HDU FITS image with the PIXTYPE,
// ORDERING, and NSIDE header keywords `healpy.write_map` produces,
// mirroring the original tool's `_mask.fits` output.
func WriteMaskFITS(path string, m *Mask) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("healpix: create %s: %w", path, err)
	}
	defer out.Close()

	w, err := fits.Create(out)
	if err != nil {
		return fmt.Errorf("healpix: %s: create FITS writer: %w", path, err)
	}
	defer w.Close()

	img, err := fits.NewImage(healpixBitpix, []int{len(m.Values)})
	if err != nil {
		return fmt.Errorf("healpix: %s: new image HDU: %w", path, err)
	}
	if err := img.Header().Set("PIXTYPE", "HEALPIX", "HEALPix pixelization"); err != nil {
		return fmt.Errorf("healpix: %s: set PIXTYPE: %w", path, err)
	}
	if err := img.Header().Set("ORDERING", "RING", "RING pixel ordering"); err != nil {
		return fmt.Errorf("healpix: %s: set ORDERING: %w", path, err)
	}
	if err := img.Header().Set("NSIDE", int64(m.NSide), "HEALPix resolution parameter"); err != nil {
		return fmt.Errorf("healpix: %s: set NSIDE: %w", path, err)
	}
	if err := img.Write(m.Values); err != nil {
		return fmt.Errorf("healpix: %s: write map data: %w", path, err)
	}
	if err := w.Write(img); err != nil {
		return fmt.Errorf("healpix: %s: write image HDU: %w", path, err)
	}
	return nil
}
