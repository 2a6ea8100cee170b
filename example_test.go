package restaurants_test

import (
	"context"
	"fmt"
	"time"

	"github.com/openrest/restaurants-go"
	"github.com/openrest/restaurants-go/apitest"
	"github.com/openrest/restaurants-go/client"
)

func ExampleNewClient() {
	srv := apitest.New()
	defer srv.Close()

	type openingHours struct {
		Type         string `json:"type"`
		RestaurantID string `json:"restaurantId"`
	}
	req := openingHours{Type: "get_opening_hours", RestaurantID: "42"}
	srv.RequestFor(req).Returns(map[string]string{"mon": "11:00-22:00"})

	c, err := restaurants.NewClient(srv.URL(), client.WithTimeout(5*time.Second))
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	done := make(chan client.Result, 1)
	c.Request(context.Background(), req, func(res client.Result) {
		done <- res
	})

	res := <-done
	if err := res.Err(); err != nil {
		fmt.Println("request error:", err)
		return
	}

	var hours map[string]string
	if err := res.Decode(&hours); err != nil {
		fmt.Println("decode error:", err)
		return
	}

	fmt.Println(hours["mon"])
	// Output: 11:00-22:00
}
