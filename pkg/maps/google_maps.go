package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

const statusOK = "OK"

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client: client,
	}, nil
}

func (g *GoogleMapsProvider) CalculateDistance(ctx context.Context, request *DistanceRequest) (*DistanceResponse, error) {
	req := &maps.DistanceMatrixRequest{
		Origins:      formatLocations(request.Origins),
		Destinations: formatLocations(request.Destinations),
		Mode:         maps.Mode(request.Mode),
		Units:        maps.Units(request.Units),
	}

	resp, err := g.client.DistanceMatrix(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("distance matrix request failed: %w", err)
	}

	rows := make([]DistanceRow, len(resp.Rows))
	for i, row := range resp.Rows {
		elements := make([]DistanceElement, len(row.Elements))
		for j, element := range row.Elements {
			elements[j] = DistanceElement{
				Distance: Distance{
					Text:  element.Distance.HumanReadable,
					Value: float64(element.Distance.Meters),
				},
				Duration: Duration{
					Text:  element.Duration.String(),
					Value: int(element.Duration.Seconds()),
				},
				Status: element.Status,
			}
		}
		rows[i] = DistanceRow{Elements: elements}
	}

	return &DistanceResponse{Rows: rows}, nil
}

func (g *GoogleMapsProvider) TravelMinutes(ctx context.Context, origins []Location, destination Location) ([]int, error) {
	if len(origins) == 0 {
		return nil, nil
	}

	resp, err := g.CalculateDistance(ctx, &DistanceRequest{
		Origins:      origins,
		Destinations: []Location{destination},
		Mode:         string(maps.TravelModeDriving),
		Units:        string(maps.UnitsMetric),
	})
	if err != nil {
		return nil, err
	}

	return minutesToDestination(resp, len(origins))
}

// minutesToDestination reads the single destination column of a matrix.
func minutesToDestination(resp *DistanceResponse, origins int) ([]int, error) {
	if len(resp.Rows) != origins {
		return nil, fmt.Errorf("distance matrix returned %d rows for %d origins", len(resp.Rows), origins)
	}

	minutes := make([]int, origins)
	for i, row := range resp.Rows {
		if len(row.Elements) == 0 || row.Elements[0].Status != statusOK {
			minutes[i] = -1
			continue
		}
		seconds := row.Elements[0].Duration.Value
		minutes[i] = (seconds + 59) / 60
	}
	return minutes, nil
}

func formatLocations(locations []Location) []string {
	out := make([]string, len(locations))
	for i, l := range locations {
		out[i] = fmt.Sprintf("%f,%f", l.Latitude, l.Longitude)
	}
	return out
}
