package illumination

import "math"

// CLAHE applies contrast-limited adaptive histogram equalization to an 8-bit
// plane of w x h values and returns a new plane.
//
// The plane is split into tiles x tiles regions. Each region's histogram is
// clipped at clipLimit times the mean bin height, the clipped excess is spread
// evenly over all bins, and the cumulative histogram becomes that region's
// mapping. Each pixel is mapped by bilinear interpolation between the
// mappings of the four nearest region centers.
func CLAHE(plane []uint8, w, h, tiles int, clipLimit float64) []uint8 {
	out := make([]uint8, len(plane))
	if w == 0 || h == 0 {
		return out
	}
	tilesX, tilesY := min(tiles, w), min(tiles, h)
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, w), min(y0+tileH, h)
			luts[ty*tilesX+tx] = tileMapping(plane, w, x0, y0, x1, y1, clipLimit)
		}
	}

	for y := 0; y < h; y++ {
		// Position relative to tile centers.
		gy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := int(math.Floor(gy))
		ay := gy - float64(ty0)
		ty1 := ty0 + 1
		ty0 = max(0, min(tilesY-1, ty0))
		ty1 = max(0, min(tilesY-1, ty1))

		for x := 0; x < w; x++ {
			gx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := int(math.Floor(gx))
			ax := gx - float64(tx0)
			tx1 := tx0 + 1
			tx0 = max(0, min(tilesX-1, tx0))
			tx1 = max(0, min(tilesX-1, tx1))

			v := plane[y*w+x]
			top := float64(luts[ty0*tilesX+tx0][v])*(1-ax) + float64(luts[ty0*tilesX+tx1][v])*ax
			bottom := float64(luts[ty1*tilesX+tx0][v])*(1-ax) + float64(luts[ty1*tilesX+tx1][v])*ax
			out[y*w+x] = clampByte(top*(1-ay) + bottom*ay)
		}
	}
	return out
}

// tileMapping builds the clipped equalization lookup table for one region.
func tileMapping(plane []uint8, w, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		for _, v := range plane[y*w+x0 : y*w+x1] {
			hist[v]++
		}
	}
	area := (x1 - x0) * (y1 - y0)

	if clipLimit > 0 {
		limit := max(1, int(clipLimit*float64(area)/256))
		excess := 0
		for i, n := range hist {
			if n > limit {
				excess += n - limit
				hist[i] = limit
			}
		}
		share, rest := excess/256, excess%256
		for i := range hist {
			hist[i] += share
			if i < rest {
				hist[i]++
			}
		}
	}

	var lut [256]uint8
	cdf := 0
	for i, n := range hist {
		cdf += n
		lut[i] = clampByte(float64(cdf) * 255 / float64(area))
	}
	return lut
}
