package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geoanchor/internal/core/domain"
	"github.com/samirrijal/geoanchor/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to the session controller.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	poseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Pose",
		Fields: graphql.Fields{
			"latitude":            &graphql.Field{Type: graphql.Float},
			"longitude":           &graphql.Field{Type: graphql.Float},
			"altitude":            &graphql.Field{Type: graphql.Float},
			"heading":             &graphql.Field{Type: graphql.Float},
			"horizontal_accuracy": &graphql.Field{Type: graphql.Float},
			"vertical_accuracy":   &graphql.Field{Type: graphql.Float},
			"heading_accuracy":    &graphql.Field{Type: graphql.Float},
		},
	})

	anchorType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Anchor",
		Fields: graphql.Fields{
			"latitude":    &graphql.Field{Type: graphql.Float},
			"longitude":   &graphql.Field{Type: graphql.Float},
			"altitude":    &graphql.Field{Type: graphql.Float},
			"heading":     &graphql.Field{Type: graphql.Float},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
			"distance_m":  &graphql.Field{Type: graphql.Float},
			"bearing_deg": &graphql.Field{Type: graphql.Float},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"classification":       &graphql.Field{Type: graphql.String},
			"fatal":                &graphql.Field{Type: graphql.Boolean},
			"message":              &graphql.Field{Type: graphql.String},
			"in_ar_view":           &graphql.Field{Type: graphql.Boolean},
			"can_place_anchor":     &graphql.Field{Type: graphql.Boolean},
			"can_clear_all":        &graphql.Field{Type: graphql.Boolean},
			"localizing":           &graphql.Field{Type: graphql.Boolean},
			"localization_seconds": &graphql.Field{Type: graphql.Float},
			"anchor_count":         &graphql.Field{Type: graphql.Int},
			"history_count":        &graphql.Field{Type: graphql.Int},
			"terminating":          &graphql.Field{Type: graphql.Boolean},
			"pose":                 &graphql.Field{Type: poseType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Current session readiness",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return sessionMap(deps.Session.Status()), nil
				},
			},
			"anchors": &graphql.Field{
				Type:        graphql.NewList(anchorType),
				Description: "Stored anchors, newest first",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					records := deps.Session.History()
					records.SortNewestFirst()
					if limit > 0 && len(records) > limit {
						records = records[:limit]
					}
					return anchorMaps(anchorViews(records, deps.Session.Status().Pose)), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"setAnchor": &graphql.Field{
				Type:        anchorType,
				Description: "Place an anchor at the current camera pose",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rec, err := deps.Session.SetAnchor(p.Context)
					if err != nil {
						return nil, err
					}
					return anchorMaps([]AnchorView{{AnchorRecord: rec}})[0], nil
				},
			},
			"clearAnchors": &graphql.Field{
				Type:        sessionType,
				Description: "Remove every anchor and empty the history",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Session.ClearAll(p.Context); err != nil {
						return nil, err
					}
					return sessionMap(deps.Session.Status()), nil
				},
			},
			"acceptPrivacyPrompt": &graphql.Field{
				Type:        sessionType,
				Description: "Record the privacy prompt consent",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Session.AcceptPrivacyPrompt(p.Context); err != nil {
						return nil, err
					}
					return sessionMap(deps.Session.Status()), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func sessionMap(st usecases.SessionStatus) map[string]interface{} {
	m := map[string]interface{}{
		"classification":       st.Classification.String(),
		"fatal":                st.Classification.IsFatal(),
		"message":              st.Presentation.Message,
		"in_ar_view":           st.Presentation.InARView,
		"can_place_anchor":     st.Presentation.Buttons.PlaceAnchor,
		"can_clear_all":        st.Presentation.Buttons.ClearAll,
		"localizing":           st.Localizing,
		"localization_seconds": st.LocalizationElapsed.Seconds(),
		"anchor_count":         st.AnchorCount,
		"history_count":        st.HistoryCount,
		"terminating":          st.Terminating,
	}
	if st.Pose != nil {
		m["pose"] = poseMap(*st.Pose)
	}
	return m
}

func poseMap(p domain.Pose) map[string]interface{} {
	return map[string]interface{}{
		"latitude":            p.Latitude,
		"longitude":           p.Longitude,
		"altitude":            p.Altitude,
		"heading":             p.Heading,
		"horizontal_accuracy": p.HorizontalAccuracy,
		"vertical_accuracy":   p.VerticalAccuracy,
		"heading_accuracy":    p.HeadingAccuracy,
	}
}

func anchorMaps(views []AnchorView) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(views))
	for _, v := range views {
		m := map[string]interface{}{
			"latitude":   v.Latitude,
			"longitude":  v.Longitude,
			"altitude":   v.Altitude,
			"heading":    v.Heading,
			"created_at": v.CreatedAt,
		}
		if v.DistanceM != nil {
			m["distance_m"] = *v.DistanceM
			m["bearing_deg"] = *v.BearingDeg
		}
		out = append(out, m)
	}
	return out
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
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
