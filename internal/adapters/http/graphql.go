package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/rihla/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.String},
			"name": &graphql.Field{Type: graphql.String},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"station_count": &graphql.Field{Type: graphql.Int},
			"stations":      &graphql.Field{Type: graphql.NewList(stationType)},
		},
	})

	stationMatchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "StationMatch",
		Fields: graphql.Fields{
			"location_id":   &graphql.Field{Type: graphql.String},
			"location_name": &graphql.Field{Type: graphql.String},
			"station":       &graphql.Field{Type: stationType},
		},
	})

	priceRangeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PriceRange",
		Fields: graphql.Fields{
			"min": &graphql.Field{Type: graphql.Float},
			"max": &graphql.Field{Type: graphql.Float},
		},
	})

	fareClassType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FareClass",
		Fields: graphql.Fields{
			"id":                &graphql.Field{Type: graphql.String},
			"short_description": &graphql.Field{Type: graphql.String},
			"long_description":  &graphql.Field{Type: graphql.String},
			"cost":              &graphql.Field{Type: graphql.Float},
			"available_seats":   &graphql.Field{Type: graphql.Int},
		},
	})

	tripType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trip",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"from":         &graphql.Field{Type: stationType},
			"to":           &graphql.Field{Type: stationType},
			"departure_at": &graphql.Field{Type: graphql.DateTime},
			"arrival_at":   &graphql.Field{Type: graphql.DateTime},
			"company":      &graphql.Field{Type: graphql.String},
			"distance":     &graphql.Field{Type: graphql.String},
			"classes":      &graphql.Field{Type: graphql.NewList(fareClassType)},
		},
	})

	orderType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TicketOrder",
		Fields: graphql.Fields{
			"order_id":     &graphql.Field{Type: graphql.String},
			"company":      &graphql.Field{Type: graphql.String},
			"from_station": &graphql.Field{Type: graphql.String},
			"to_station":   &graphql.Field{Type: graphql.String},
			"date":         &graphql.Field{Type: graphql.String},
			"total":        &graphql.Field{Type: graphql.Float},
		},
	})

	paymentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PaymentSession",
		Fields: graphql.Fields{
			"url": &graphql.Field{Type: graphql.String},
			"resolved_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if ps, ok := p.Source.(*domain.PaymentSession); ok && ps != nil {
						return ps.ResolvedAt.Format(time.RFC3339), nil
					}
					return nil, nil
				},
			},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":                &graphql.Field{Type: graphql.String},
			"generation":        &graphql.Field{Type: graphql.Int},
			"state":             &graphql.Field{Type: graphql.String},
			"reason":            &graphql.Field{Type: graphql.String},
			"violations":        &graphql.Field{Type: graphql.NewList(graphql.String)},
			"last_error":        &graphql.Field{Type: graphql.String},
			"trip_count":        &graphql.Field{Type: graphql.Int},
			"selected_trip_id":  &graphql.Field{Type: graphql.String},
			"selected_class_id": &graphql.Field{Type: graphql.String},
			"price_bounds":      &graphql.Field{Type: priceRangeType},
			"order":             &graphql.Field{Type: orderType},
			"payment":           &graphql.Field{Type: paymentType},
			"confirm_redirect":  &graphql.Field{Type: graphql.Boolean},
		},
	})

	langArg := &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"locations": &graphql.Field{
				Type:        graphql.NewList(locationType),
				Description: "Governorates with their stations",
				Args:        graphql.FieldConfigArgument{"lang": langArg},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lang, _ := p.Args["lang"].(string)
					return deps.Locations.List(p.Context, lang)
				},
			},
			"stations": &graphql.Field{
				Type:        graphql.NewList(stationMatchType),
				Description: "Autocomplete stations by name",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lang":  langArg,
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lang, _ := p.Args["lang"].(string)
					limit, _ := p.Args["limit"].(int)
					return deps.Locations.Stations(p.Context, lang, p.Args["query"].(string), limit)
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Snapshot of a booking session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Sessions.Get(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return s.Snapshot(), nil
				},
			},
			"trips": &graphql.Field{
				Type:        graphql.NewList(tripType),
				Description: "Filtered search results of a session",
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Sessions.Get(p.Args["session_id"].(string))
					if err != nil {
						return nil, err
					}
					return s.Trips(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
