package generation_api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"diffusion_session_bot/entities"
)

type apiImpl struct {
	host string
}

type Config struct {
	Host string
}

func New(cfg Config) (GenerationAPI, error) {
	if cfg.Host == "" {
		return nil, errors.New("missing host")
	}

	// remove trailing slash
	if cfg.Host[len(cfg.Host)-1:] == "/" {
		cfg.Host = cfg.Host[:len(cfg.Host)-1]
	}

	return &apiImpl{
		host: cfg.Host,
	}, nil
}

type Txt2ImgRequest struct {
	Params   entities.GenerationParams `json:"params"`
	Model    string                    `json:"model,omitempty"`
	Platform string                    `json:"platform,omitempty"`
}

type Img2ImgRequest struct {
	Params   entities.GenerationParams `json:"params"`
	Source   string                    `json:"source"`
	Strength float64                   `json:"strength"`
	Model    string                    `json:"model,omitempty"`
	Platform string                    `json:"platform,omitempty"`
}

type UpscaleRequest struct {
	Source   string                 `json:"source"`
	Upscale  entities.UpscaleParams `json:"upscale"`
	Model    string                 `json:"model,omitempty"`
	Platform string                 `json:"platform,omitempty"`
}

func (api *apiImpl) Txt2Img(req *Txt2ImgRequest) (*entities.ImageResponse, error) {
	if req == nil {
		return nil, errors.New("missing request")
	}

	return api.submit("/api/txt2img", req)
}

func (api *apiImpl) Img2Img(req *Img2ImgRequest) (*entities.ImageResponse, error) {
	if req == nil {
		return nil, errors.New("missing request")
	}

	return api.submit("/api/img2img", req)
}

func (api *apiImpl) Upscale(req *UpscaleRequest) (*entities.ImageResponse, error) {
	if req == nil {
		return nil, errors.New("missing request")
	}

	return api.submit("/api/upscale", req)
}

func (api *apiImpl) submit(path string, req any) (*entities.ImageResponse, error) {
	postURL := api.host + path

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequest("POST", postURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	request.Header.Set("Content-Type", "application/json; charset=UTF-8")

	client := &http.Client{}

	response, err := client.Do(request)
	if err != nil {
		log.Printf("API URL: %s", postURL)
		log.Printf("Error with API Request: %s", string(jsonData))

		return nil, err
	}

	defer response.Body.Close()

	body, _ := io.ReadAll(response.Body)

	respStruct := &entities.ImageResponse{}

	err = json.Unmarshal(body, respStruct)
	if err != nil {
		log.Printf("API URL: %s", postURL)
		log.Printf("Unexpected API response: %s", string(body))

		return nil, err
	}

	if respStruct.Key() == "" {
		log.Printf("API URL: %s", postURL)
		log.Printf("Response carries no output descriptors: %s", string(body))

		return nil, errors.New("response carries no output descriptors")
	}

	return respStruct, nil
}

func (api *apiImpl) Ready(outputKey string) (*entities.ReadyStatus, error) {
	getURL := fmt.Sprintf("%s/api/ready?output=%s", api.host, url.QueryEscape(outputKey))

	request, err := http.NewRequest("GET", getURL, bytes.NewBuffer([]byte{}))
	if err != nil {
		return nil, err
	}

	client := &http.Client{}

	response, err := client.Do(request)
	if err != nil {
		log.Printf("API URL: %s", getURL)
		log.Printf("Error with API Request: %v", err)

		return nil, err
	}

	defer response.Body.Close()

	body, _ := io.ReadAll(response.Body)

	respStruct := &entities.ReadyStatus{}

	err = json.Unmarshal(body, respStruct)
	if err != nil {
		log.Printf("API URL: %s", getURL)
		log.Printf("Unexpected API response: %s", string(body))

		return nil, err
	}

	return respStruct, nil
}

func (api *apiImpl) Params() (*entities.ServerParams, error) {
	getURL := api.host + "/api/settings/params"

	request, err := http.NewRequest("GET", getURL, bytes.NewBuffer([]byte{}))
	if err != nil {
		return nil, err
	}

	client := &http.Client{}

	response, err := client.Do(request)
	if err != nil {
		log.Printf("API URL: %s", getURL)
		log.Printf("Error with API Request: %v", err)

		return nil, err
	}

	defer response.Body.Close()

	body, _ := io.ReadAll(response.Body)

	respStruct := &entities.ServerParams{}

	err = json.Unmarshal(body, respStruct)
	if err != nil {
		log.Printf("API URL: %s", getURL)
		log.Printf("Unexpected API response: %s", string(body))

		return nil, err
	}

	return respStruct, nil
}

func (api *apiImpl) GetOutput(outputKey string) ([]byte, error) {
	getURL := fmt.Sprintf("%s/output/%s", api.host, url.PathEscape(outputKey))

	response, err := http.Get(getURL)
	if err != nil {
		log.Printf("API URL: %s", getURL)
		log.Printf("Error with API Request: %v", err)

		return nil, err
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching output %q", response.StatusCode, outputKey)
	}

	return io.ReadAll(response.Body)
}
