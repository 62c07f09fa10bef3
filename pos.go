// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.18
//

package gosnap

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

//-------------------------------------------------------------------
// PosLLH
//-------------------------------------------------------------------

// Geodetic position. Latitude and longitude in degrees, ellipsoidal height in meters.
type PosLLH struct {
	Lat float64
	Lon float64
	Hei float64
}

func NewPosLLH(lat, lon, hei float64) *PosLLH {
	return &PosLLH{
		Lat: lat,
		Lon: lon,
		Hei: hei,
	}
}

func (llh *PosLLH) ToXYZ() PosXYZ {
	// Ellipsoid parameters
	f := Fe                     // Flattening
	a := Re                     // Semi-major axis
	e := math.Sqrt(f * (2 - f)) // Eccentricity

	lat := ToRad(llh.Lat)
	lon := ToRad(llh.Lon)

	// Conversion to Cartesian coordinates
	n := a / math.Sqrt(1-e*e*math.Sin(lat)*math.Sin(lat))
	return PosXYZ{
		X: (n + llh.Hei) * math.Cos(lat) * math.Cos(lon),
		Y: (n + llh.Hei) * math.Cos(lat) * math.Sin(lon),
		Z: (n*(1-e*e) + llh.Hei) * math.Sin(lat),
	}
}

// Read from string ("lat lon" or "lat lon hei", degrees and meters)
func (llh *PosLLH) Set(s string) error {
	var err error
	f := strings.Fields(s)
	if len(f) < 2 {
		return fmt.Errorf("expected \"lat lon [hei]\", got %q", s)
	}
	llh.Lat, err = strconv.ParseFloat(f[0], 64)
	if err != nil {
		return err
	}
	llh.Lon, err = strconv.ParseFloat(f[1], 64)
	if err != nil {
		return err
	}
	if len(f) >= 3 {
		llh.Hei, err = strconv.ParseFloat(f[2], 64)
		if err != nil {
			return err
		}
	}
	return nil
}

// Convert to string
func (llh *PosLLH) String() string {
	return fmt.Sprintf("%.8f %.8f %.4f", llh.Lat, llh.Lon, llh.Hei)
}

//-------------------------------------------------------------------
// PosXYZ
//-------------------------------------------------------------------

type PosXYZ struct {
	X float64
	Y float64
	Z float64
}

func NewPosXYZ(x, y, z float64) *PosXYZ {
	return &PosXYZ{
		X: x,
		Y: y,
		Z: z,
	}
}

func (pos *PosXYZ) ToLLH() PosLLH {
	// In case of origin
	if pos.X == 0 && pos.Y == 0 && pos.Z == 0 {
		return PosLLH{Lat: 0, Lon: 0, Hei: -Re}
	}

	// Ellipsoid parameters
	f := Fe                     // Flattening
	a := Re                     // Semi-major axis
	b := a * (1 - f)            // Semi-minor axis
	e := math.Sqrt(f * (2 - f)) // Eccentricity

	// Parameters for coordinate transformation
	h := a*a - b*b
	p := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y)
	t := math.Atan2(pos.Z*a, p*b)
	sint := math.Sin(t)
	cost := math.Cos(t)

	// Conversion to latitude and longitude
	lat := math.Atan2(pos.Z+h/b*sint*sint*sint, p-h/a*cost*cost*cost)
	lon := math.Atan2(pos.Y, pos.X)
	n := a / math.Sqrt(1-e*e*math.Sin(lat)*math.Sin(lat)) // Radius of curvature in the prime vertical
	hei := p/math.Cos(lat) - n
	return PosLLH{Lat: ToDeg(lat), Lon: ToDeg(lon), Hei: hei}
}
